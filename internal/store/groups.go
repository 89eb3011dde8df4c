package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateGroup inserts a new URL group.
func (s *SQLStore) CreateGroup(ctx context.Context, name, description string) (*URLGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("group name must not be empty")
	}

	now := time.Now().UTC()
	g := &URLGroup{
		ID:          generateID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO url_groups (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		g.ID, g.Name, g.Description, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return g, nil
}

// GetGroup retrieves a group by id.
func (s *SQLStore) GetGroup(ctx context.Context, id string) (*URLGroup, error) {
	g := &URLGroup{}
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id, name, description, created_at, updated_at FROM url_groups WHERE id = ?`), id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// ListGroups retrieves all groups ordered by name.
func (s *SQLStore) ListGroups(ctx context.Context) ([]*URLGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, name, description, created_at, updated_at FROM url_groups ORDER BY name`))
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*URLGroup
	for rows.Next() {
		g := &URLGroup{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateGroup renames a group.
func (s *SQLStore) UpdateGroup(ctx context.Context, id, name, description string) error {
	if name == "" {
		return fmt.Errorf("group name must not be empty")
	}

	result, err := s.db.ExecContext(ctx,
		s.q(`UPDATE url_groups SET name = ?, description = ?, updated_at = ? WHERE id = ?`),
		name, description, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteGroup removes a group; memberships and assignments cascade away,
// the URLs themselves stay.
func (s *SQLStore) DeleteGroup(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM url_groups WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountGroups reports how many groups exist.
func (s *SQLStore) CountGroups(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM url_groups`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return n, nil
}
