package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linkboard/linkboard/internal/domain"
)

// Store is the durable persistence the ledger writes to.
type Store interface {
	InsertActivity(ctx context.Context, rec *domain.ActivityRecord) error
	ActivitiesForList(ctx context.Context, listID string, limit int) ([]*domain.ActivityRecord, error)
}

// Ledger is the durable, append-only audit trail. Unlike the transient
// channel log, write failures here propagate to the caller.
type Ledger struct {
	store Store
}

// New creates a ledger over a store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// anonymousEmail labels records produced by identity-less callers, who
// can comment on public lists.
const anonymousEmail = "anonymous"

// Record appends one activity record and returns it with its assigned
// id. The ULID id is time-ordered and serves as the stable event
// identity for stream dedup.
func (l *Ledger) Record(ctx context.Context, listID string, actor *domain.Identity, action domain.Action, details domain.ActivityDetails) (*domain.ActivityRecord, error) {
	if !domain.ValidAction(action) {
		return nil, fmt.Errorf("invalid activity action %q", action)
	}

	rec := &domain.ActivityRecord{
		ID:         ulid.Make().String(),
		ListID:     listID,
		ActorEmail: anonymousEmail,
		Action:     action,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if actor != nil {
		rec.ActorID = actor.ID
		rec.ActorEmail = actor.Email
	}

	if err := l.store.InsertActivity(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	return rec, nil
}

// List returns the newest records first.
func (l *Ledger) List(ctx context.Context, listID string, limit int) ([]*domain.ActivityRecord, error) {
	return l.store.ActivitiesForList(ctx, listID, limit)
}
