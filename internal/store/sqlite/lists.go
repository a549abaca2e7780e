package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linkboard/linkboard/internal/domain"
)

// CreateList inserts a list and its collaborator rows in one transaction.
func (s *Store) CreateList(ctx context.Context, list *domain.List) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lists (id, slug, title, description, public, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID, list.Slug, list.Title, list.Description, list.Public,
		list.OwnerID, list.CreatedAt, list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert list: %w", err)
	}

	if err := replaceCollaboratorsTx(ctx, tx, list); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list insert: %w", err)
	}
	return nil
}

// GetListBySlug retrieves a list with its collaborators resolved.
func (s *Store) GetListBySlug(ctx context.Context, slug string) (*domain.List, error) {
	return s.getList(ctx, "slug = ?", slug)
}

// GetListByID retrieves a list with its collaborators resolved.
func (s *Store) GetListByID(ctx context.Context, id string) (*domain.List, error) {
	return s.getList(ctx, "id = ?", id)
}

func (s *Store) getList(ctx context.Context, where string, arg any) (*domain.List, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, title, description, public, owner_id, created_at, updated_at
		 FROM lists WHERE `+where, arg)

	list := &domain.List{}
	err := row.Scan(&list.ID, &list.Slug, &list.Title, &list.Description,
		&list.Public, &list.OwnerID, &list.CreatedAt, &list.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}

	collabs, err := s.CollaboratorsForList(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	list.Roles = make(map[string]domain.Role, len(collabs))
	for _, c := range collabs {
		if c.Legacy {
			list.LegacyCollaborators = append(list.LegacyCollaborators, c.Email)
			continue
		}
		list.Roles[c.Email] = c.Role
	}

	return list, nil
}

// UpdateListMeta persists title, description, visibility and the
// updated-at stamp. Whole-field last-write-wins; no concurrency token.
func (s *Store) UpdateListMeta(ctx context.Context, list *domain.List) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE lists SET title = ?, description = ?, public = ?, updated_at = ? WHERE id = ?`,
		list.Title, list.Description, list.Public, list.UpdatedAt, list.ID)
	if err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}
	return requireRow(res)
}

// CountLists reports how many lists exist; seeding uses it to detect a
// fresh database.
func (s *Store) CountLists(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count lists: %w", err)
	}
	return n, nil
}

// DeleteList removes a list; entries, collaborators and activities
// cascade with it.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return requireRow(res)
}

// CollaboratorsForList returns the stored roster rows for a list.
func (s *Store) CollaboratorsForList(ctx context.Context, listID string) ([]domain.Collaborator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, role, legacy FROM collaborators WHERE list_id = ? ORDER BY email`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collaborators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	collabs := make([]domain.Collaborator, 0, 4)
	for rows.Next() {
		var c domain.Collaborator
		var role string
		if err := rows.Scan(&c.Email, &role, &c.Legacy); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		c.Role = domain.Role(role)
		if c.Legacy {
			// Legacy members carry no stored role; they resolve to editor.
			c.Role = domain.RoleEditor
		}
		collabs = append(collabs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collaborators: %w", err)
	}
	return collabs, nil
}

// SetCollaborator upserts an explicit role-map entry.
func (s *Store) SetCollaborator(ctx context.Context, listID, email string, role domain.Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collaborators (list_id, email, role, legacy) VALUES (?, ?, ?, 0)
		 ON CONFLICT (list_id, email) DO UPDATE SET role = excluded.role, legacy = 0`,
		listID, email, string(role))
	if err != nil {
		return fmt.Errorf("failed to set collaborator: %w", err)
	}
	return nil
}

// RemoveCollaborator removes a roster entry (explicit or legacy).
func (s *Store) RemoveCollaborator(ctx context.Context, listID, email string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collaborators WHERE list_id = ? AND email = ?`, listID, email)
	if err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}
	return requireRow(res)
}

func replaceCollaboratorsTx(ctx context.Context, tx *sql.Tx, list *domain.List) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collaborators WHERE list_id = ?`, list.ID); err != nil {
		return fmt.Errorf("failed to clear collaborators: %w", err)
	}
	for email, role := range list.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collaborators (list_id, email, role, legacy) VALUES (?, ?, ?, 0)`,
			list.ID, email, string(role)); err != nil {
			return fmt.Errorf("failed to insert collaborator: %w", err)
		}
	}
	for _, email := range list.LegacyCollaborators {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collaborators (list_id, email, role, legacy) VALUES (?, ?, '', 1)`,
			list.ID, email); err != nil {
			return fmt.Errorf("failed to insert legacy collaborator: %w", err)
		}
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
