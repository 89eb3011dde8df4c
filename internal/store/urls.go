package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const urlColumns = `id, title, target, mobile_target, icon, idle_timeout_seconds, open_external, created_at, updated_at`

// scanURL reads one URL row from any row-ish scanner.
func scanURL(row interface{ Scan(...any) error }) (*URL, error) {
	u := &URL{}
	var mobile, icon sql.NullString
	err := row.Scan(&u.ID, &u.Title, &u.Target, &mobile, &icon, &u.IdleTimeoutSeconds, &u.OpenExternal, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if mobile.Valid {
		u.MobileTarget = mobile.String
	}
	if icon.Valid {
		u.Icon = icon.String
	}
	return u, nil
}

// nullString returns a sql.NullString for optional string fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// CreateURL inserts a new URL, filling ID and timestamps on the way in.
func (s *SQLStore) CreateURL(ctx context.Context, u *URL) error {
	if u.Title == "" {
		return fmt.Errorf("url title must not be empty")
	}
	if u.Target == "" {
		return fmt.Errorf("url target must not be empty")
	}

	if u.ID == "" {
		u.ID = generateID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO urls (`+urlColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Title, u.Target, nullString(u.MobileTarget), nullString(u.Icon),
		u.IdleTimeoutSeconds, u.OpenExternal, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create url: %w", err)
	}
	return nil
}

// GetURL retrieves a URL by id.
func (s *SQLStore) GetURL(ctx context.Context, id string) (*URL, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+urlColumns+` FROM urls WHERE id = ?`), id)

	u, err := scanURL(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("url %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get url: %w", err)
	}
	return u, nil
}

// ListURLs retrieves every URL ordered by title.
func (s *SQLStore) ListURLs(ctx context.Context) ([]*URL, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+urlColumns+` FROM urls ORDER BY title`))
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []*URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// UpdateURL rewrites every mutable field of a URL.
func (s *SQLStore) UpdateURL(ctx context.Context, u *URL) error {
	if u.Title == "" {
		return fmt.Errorf("url title must not be empty")
	}
	if u.Target == "" {
		return fmt.Errorf("url target must not be empty")
	}

	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		s.q(`UPDATE urls SET title = ?, target = ?, mobile_target = ?, icon = ?, idle_timeout_seconds = ?, open_external = ?, updated_at = ? WHERE id = ?`),
		u.Title, u.Target, nullString(u.MobileTarget), nullString(u.Icon),
		u.IdleTimeoutSeconds, u.OpenExternal, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update url: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("url %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

// DeleteURL removes a URL; its group memberships cascade away and any
// last-active references clear to NULL.
func (s *SQLStore) DeleteURL(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM urls WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete url: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("url %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountURLs reports how many URLs exist.
func (s *SQLStore) CountURLs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM urls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count urls: %w", err)
	}
	return n, nil
}
