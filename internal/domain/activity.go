package domain

import "time"

// Action is the closed enum of auditable mutations.
type Action string

const (
	ActionListCreated        Action = "list_created"
	ActionListUpdated        Action = "list_updated"
	ActionListDeleted        Action = "list_deleted"
	ActionURLAdded           Action = "url_added"
	ActionURLUpdated         Action = "url_updated"
	ActionURLDeleted         Action = "url_deleted"
	ActionURLsReordered      Action = "urls_reordered"
	ActionURLClicked         Action = "url_clicked"
	ActionURLHealthChanged   Action = "url_health_changed"
	ActionCommentAdded       Action = "comment_added"
	ActionCollaboratorAdded  Action = "collaborator_added"
	ActionCollaboratorRemove Action = "collaborator_removed"
	ActionVisibilityChanged  Action = "visibility_changed"
)

// ValidAction reports whether a is part of the closed enum.
func ValidAction(a Action) bool {
	switch a {
	case ActionListCreated, ActionListUpdated, ActionListDeleted,
		ActionURLAdded, ActionURLUpdated, ActionURLDeleted,
		ActionURLsReordered, ActionURLClicked, ActionURLHealthChanged,
		ActionCommentAdded, ActionCollaboratorAdded,
		ActionCollaboratorRemove, ActionVisibilityChanged:
		return true
	}
	return false
}

// ActivityRecord is one row of the durable, append-only audit trail.
// Records are never mutated; corrections are themselves new records.
// The ULID id doubles as the stable event identity used by stream dedup.
type ActivityRecord struct {
	ID         string          `json:"id"`
	ListID     string          `json:"listId"`
	ActorID    string          `json:"actorId,omitempty"`
	ActorEmail string          `json:"actorEmail"`
	Action     Action          `json:"action"`
	Details    ActivityDetails `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
