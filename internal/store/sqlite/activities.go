package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
)

// InsertActivity appends one ledger row. The ledger is append-only:
// there is no update path, corrections are new records.
func (s *Store) InsertActivity(ctx context.Context, rec *domain.ActivityRecord) error {
	details, err := domain.EncodeDetails(rec.Details)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activities (id, list_id, actor_id, actor_email, action, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ListID, rec.ActorID, rec.ActorEmail, string(rec.Action),
		details, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// ActivitiesForList returns the newest records first. The ULID ids sort
// the same way as created_at, which keeps the total order stable for
// records created within the same instant.
func (s *Store) ActivitiesForList(ctx context.Context, listID string, limit int) ([]*domain.ActivityRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, list_id, actor_id, actor_email, action, details, created_at
		 FROM activities WHERE list_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, listID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.ActivityRecord, 0, limit)
	for rows.Next() {
		rec := &domain.ActivityRecord{}
		var action string
		var details []byte
		if err := rows.Scan(&rec.ID, &rec.ListID, &rec.ActorID, &rec.ActorEmail,
			&action, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		rec.Action = domain.Action(action)
		rec.Details, err = domain.DecodeDetails(rec.Action, details)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return records, nil
}

// PruneActivities deletes records older than cutoff while keeping at
// least keep recent records per list.
func (s *Store) PruneActivities(ctx context.Context, cutoff time.Time, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activities WHERE created_at < ? AND id NOT IN (
			SELECT id FROM activities a2
			WHERE a2.list_id = activities.list_id
			ORDER BY a2.created_at DESC, a2.id DESC LIMIT ?
		)`, cutoff, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activities: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned activities: %w", err)
	}
	return n, nil
}
