package domain

import "time"

// List is a shared, ordered collection of URL entries.
type List struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier (UUID).
	ID string `json:"id"`

	// Slug is the unique, URL-safe handle used by the read paths.
	Slug string `json:"slug"`

	// ─────────────────────────────
	// Presentation
	// ─────────────────────────────

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// ─────────────────────────────
	// Access control
	// ─────────────────────────────

	// Public grants anyone viewer access without an identity.
	Public bool `json:"public"`

	// OwnerID is the identity that created the list. Exactly one owner.
	OwnerID string `json:"ownerId"`

	// Roles maps collaborator email to an explicit role (editor|viewer).
	Roles map[string]Role `json:"roles,omitempty"`

	// LegacyCollaborators is the deprecated role-less collaborator set.
	// Members resolve to editor for backward compatibility.
	LegacyCollaborators []string `json:"legacyCollaborators,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Collaborator is one resolved roster entry for a list.
type Collaborator struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`

	// Legacy marks members carried over from the deprecated
	// collaborator set rather than the role map.
	Legacy bool `json:"legacy,omitempty"`
}
