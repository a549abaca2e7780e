package domain

import "time"

// HealthStatus is the last observed liveness of an entry's URL.
type HealthStatus string

const (
	HealthHealthy HealthStatus = "healthy"
	HealthWarning HealthStatus = "warning"
	HealthBroken  HealthStatus = "broken"
	HealthUnknown HealthStatus = "unknown"
)

// UrlEntry is a single bookmark inside a list.
type UrlEntry struct {
	ID     string `json:"id"`
	ListID string `json:"listId"`

	Address     string   `json:"address"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`

	Favorite bool `json:"favorite"`
	Pinned   bool `json:"pinned"`

	// Clicks counts visits. Updated via a dedicated high-frequency path.
	Clicks int64 `json:"clicks"`

	Health HealthStatus `json:"health"`

	// Position is the persisted canonical display order. Nil on legacy
	// rows created before ordering existed; assigned lazily on first
	// unified read and persisted afterwards.
	Position *int `json:"position,omitempty"`

	// Archived entries are hidden from reads but kept for history.
	Archived bool `json:"archived,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
