package events

import (
	"fmt"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
)

// EventType is the kind of message delivered over a stream connection.
type EventType string

const (
	EventConnected       EventType = "connected"
	EventHeartbeat       EventType = "heartbeat"
	EventListUpdated     EventType = "list_updated"
	EventActivityCreated EventType = "activity_created"
	EventError           EventType = "error"
)

// ActivitySummary is the slice of an activity record embedded in an
// activity_created envelope for optimistic rendering.
type ActivitySummary struct {
	ID         string        `json:"id"`
	Action     domain.Action `json:"action"`
	ActorEmail string        `json:"actorEmail"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Envelope is the structured message written to a channel log and
// forwarded over stream connections. Envelopes are transient; the
// unified read is always re-derivable without them.
type Envelope struct {
	Type   EventType `json:"type"`
	ListID string    `json:"listId,omitempty"`

	// Action is set on list_updated envelopes.
	Action domain.Action `json:"action,omitempty"`

	// Timestamp is milliseconds since epoch; it doubles as the SSE
	// message id.
	Timestamp int64 `json:"timestamp"`

	// URLID and ClickCount ride on high-frequency click envelopes so
	// clients can patch state directly without a resync.
	URLID      string `json:"urlId,omitempty"`
	ClickCount int64  `json:"clickCount,omitempty"`

	// Activity is set on activity_created envelopes.
	Activity *ActivitySummary `json:"activity,omitempty"`
}

// Key is the dedup identity of an envelope. Activity envelopes reuse the
// durable record id; everything else derives a key from its fields.
// Delivery is at-least-once, so consumers drop envelopes whose key they
// have already seen.
func (e Envelope) Key() string {
	if e.Activity != nil && e.Activity.ID != "" {
		return "act:" + e.Activity.ID
	}
	return fmt.Sprintf("%s:%s:%s:%s:%d", e.Type, e.ListID, e.Action, e.URLID, e.Timestamp)
}

// NowMillis returns the current envelope timestamp.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
