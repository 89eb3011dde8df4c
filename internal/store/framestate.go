package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetFrameState retrieves the dashboard state blob for a user. A user who
// has never saved state gets ErrNotFound.
func (s *SQLStore) GetFrameState(ctx context.Context, userID string) (string, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT state FROM user_frame_state WHERE user_id = ?`), userID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("frame state for user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get frame state: %w", err)
	}
	return state, nil
}

// SaveFrameState upserts the dashboard state blob for a user.
func (s *SQLStore) SaveFrameState(ctx context.Context, userID, state string) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO user_frame_state (user_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`),
		userID, state, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save frame state: %w", err)
	}
	return nil
}
