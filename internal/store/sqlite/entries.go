package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linkboard/linkboard/internal/domain"
)

const entryColumns = `id, list_id, address, title, description, tags, category,
	favorite, pinned, clicks, health, position, archived, created_at, updated_at`

// InsertEntry stores a new URL entry.
func (s *Store) InsertEntry(ctx context.Context, e *domain.UrlEntry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	var position sql.NullInt64
	if e.Position != nil {
		position = sql.NullInt64{Int64: int64(*e.Position), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO url_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ListID, e.Address, e.Title, e.Description, string(tags), e.Category,
		e.Favorite, e.Pinned, e.Clicks, string(e.Health), position, e.Archived,
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by id, archived or not.
func (s *Store) GetEntry(ctx context.Context, id string) (*domain.UrlEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM url_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// EntriesForList returns the active entries in storage order. Callers
// must not treat that order as canonical; it is normalized by position
// on every unified read.
func (s *Store) EntriesForList(ctx context.Context, listID string) ([]*domain.UrlEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM url_entries
		 WHERE list_id = ? AND archived = 0 ORDER BY created_at, id`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.UrlEntry, 0, 16)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry persists all mutable fields of an entry.
func (s *Store) UpdateEntry(ctx context.Context, e *domain.UrlEntry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	var position sql.NullInt64
	if e.Position != nil {
		position = sql.NullInt64{Int64: int64(*e.Position), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE url_entries SET address = ?, title = ?, description = ?, tags = ?,
		 category = ?, favorite = ?, pinned = ?, health = ?, position = ?, updated_at = ?
		 WHERE id = ?`,
		e.Address, e.Title, e.Description, string(tags), e.Category,
		e.Favorite, e.Pinned, string(e.Health), position, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return requireRow(res)
}

// ArchiveEntry soft-deletes an entry; it disappears from reads but
// stays for history.
func (s *Store) ArchiveEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE url_entries SET archived = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to archive entry: %w", err)
	}
	return requireRow(res)
}

// NextPosition returns the position a newly added entry should take.
func (s *Store) NextPosition(ctx context.Context, listID string) (int, error) {
	var next sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(position) + 1 FROM url_entries WHERE list_id = ? AND archived = 0`,
		listID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next position: %w", err)
	}
	if !next.Valid {
		// Either no rows or only legacy rows without positions; count
		// active entries so the new one lands after them.
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM url_entries WHERE list_id = ? AND archived = 0`,
			listID).Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to count entries: %w", err)
		}
		return count, nil
	}
	return int(next.Int64), nil
}

// SetPositions persists canonical positions in one transaction. This is
// the whole-collection write path shared by reorders and lazy
// backfills; concurrent writers clobber each other last-write-wins.
func (s *Store) SetPositions(ctx context.Context, listID string, positions map[string]int) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE url_entries SET position = ? WHERE id = ? AND list_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare position update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for id, pos := range positions {
		if _, err := stmt.ExecContext(ctx, pos, id, listID); err != nil {
			return fmt.Errorf("failed to set position for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit positions: %w", err)
	}
	return nil
}

// IncrementClicks bumps an entry's click counter and returns the new value.
func (s *Store) IncrementClicks(ctx context.Context, id string) (int64, error) {
	var clicks int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE url_entries SET clicks = clicks + 1, updated_at = ? WHERE id = ?
		 RETURNING clicks`, time.Now().UTC(), id).Scan(&clicks)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return clicks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.UrlEntry, error) {
	e := &domain.UrlEntry{}
	var tags, health string
	var position sql.NullInt64

	err := row.Scan(&e.ID, &e.ListID, &e.Address, &e.Title, &e.Description,
		&tags, &e.Category, &e.Favorite, &e.Pinned, &e.Clicks, &health,
		&position, &e.Archived, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	e.Health = domain.HealthStatus(health)
	if position.Valid {
		p := int(position.Int64)
		e.Position = &p
	}
	return e, nil
}
