package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUsername trims, lower-cases, and NFC-normalizes a username so
// visually identical spellings land on the same account.
func NormalizeUsername(name string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
}

const userColumns = `id, username, password_hash, is_admin, last_active_url, created_at, updated_at`

// scanUser reads one user row from any row-ish scanner.
func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	var lastActive sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &lastActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		u.LastActiveURL = lastActive.String
	}
	return u, nil
}

// CreateUser inserts a new account. The username is normalized before the
// uniqueness check.
func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}

	existing, err := s.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s: %w", username, ErrUsernameTaken)
	}

	now := time.Now().UTC()
	u := &User{
		ID:           generateID(),
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO users (id, username, password_hash, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

// GetUser retrieves a user by id.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by normalized username.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username = NormalizeUsername(username)

	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

// ListUsers retrieves all accounts ordered by username.
func (s *SQLStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users ORDER BY username`))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPassword replaces the password hash for an account.
func (s *SQLStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetUserAdmin flips the admin flag for an account.
func (s *SQLStore) SetUserAdmin(ctx context.Context, id string, isAdmin bool) error {
	result, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`),
		isAdmin, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetLastActiveURL records the URL a user most recently selected. An empty
// urlID clears the record.
func (s *SQLStore) SetLastActiveURL(ctx context.Context, userID, urlID string) error {
	var ref *string
	if urlID != "" {
		ref = &urlID
	}

	result, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET last_active_url = ? WHERE id = ?`),
		ref, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set last active url: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// DeleteUser removes an account; its group assignments cascade away.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountUsers reports how many accounts exist.
func (s *SQLStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
