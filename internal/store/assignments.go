package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AddURLToGroup appends a URL to a group's ordered members. Adding an
// existing member is a no-op.
func (s *SQLStore) AddURLToGroup(ctx context.Context, groupID, urlID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM group_urls WHERE group_id = ? AND url_id = ?`),
		groupID, urlID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if exists > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO group_urls (group_id, url_id, position)
		     VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM group_urls WHERE group_id = ?))`),
		groupID, urlID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to add url to group: %w", err)
	}
	return nil
}

// RemoveURLFromGroup drops a URL from a group's members.
func (s *SQLStore) RemoveURLFromGroup(ctx context.Context, groupID, urlID string) error {
	result, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM group_urls WHERE group_id = ? AND url_id = ?`),
		groupID, urlID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove url from group: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("membership %s/%s: %w", groupID, urlID, ErrNotFound)
	}
	return nil
}

// SetGroupURLOrder replaces a group's membership with urlIDs in the given
// order.
func (s *SQLStore) SetGroupURLOrder(ctx context.Context, groupID string, urlIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`DELETE FROM group_urls WHERE group_id = ?`), groupID)
	if err != nil {
		return fmt.Errorf("failed to clear group membership: %w", err)
	}

	for i, urlID := range urlIDs {
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO group_urls (group_id, url_id, position) VALUES (?, ?, ?)`),
			groupID, urlID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert membership: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListGroupURLs retrieves a group's URLs in display order.
func (s *SQLStore) ListGroupURLs(ctx context.Context, groupID string) ([]*URL, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT u.id, u.title, u.target, u.mobile_target, u.icon, u.idle_timeout_seconds, u.open_external, u.created_at, u.updated_at
		     FROM urls u
		     JOIN group_urls gu ON gu.url_id = u.id
		     WHERE gu.group_id = ?
		     ORDER BY gu.position`),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group urls: %w", err)
	}
	defer rows.Close()

	var urls []*URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// AssignGroupToUser appends a group to a user's assignments. Re-assigning
// is a no-op.
func (s *SQLStore) AssignGroupToUser(ctx context.Context, userID, groupID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM user_groups WHERE user_id = ? AND group_id = ?`),
		userID, groupID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if exists > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO user_groups (user_id, group_id, position)
		     VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM user_groups WHERE user_id = ?))`),
		userID, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign group: %w", err)
	}
	return nil
}

// RemoveGroupFromUser drops a group from a user's assignments.
func (s *SQLStore) RemoveGroupFromUser(ctx context.Context, userID, groupID string) error {
	result, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM user_groups WHERE user_id = ? AND group_id = ?`),
		userID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("assignment %s/%s: %w", userID, groupID, ErrNotFound)
	}
	return nil
}

// SetUserGroupOrder replaces a user's assignments with groupIDs in the
// given order.
func (s *SQLStore) SetUserGroupOrder(ctx context.Context, userID string, groupIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`DELETE FROM user_groups WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	for i, groupID := range groupIDs {
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO user_groups (user_id, group_id, position) VALUES (?, ?, ?)`),
			userID, groupID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListUserGroups retrieves a user's assigned groups in assignment order.
func (s *SQLStore) ListUserGroups(ctx context.Context, userID string) ([]*URLGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT g.id, g.name, g.description, g.created_at, g.updated_at
		     FROM url_groups g
		     JOIN user_groups ug ON ug.group_id = g.id
		     WHERE ug.user_id = ?
		     ORDER BY ug.position`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	defer rows.Close()

	var groups []*URLGroup
	for rows.Next() {
		g := &URLGroup{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListUsersForGroup retrieves the users a group is assigned to.
func (s *SQLStore) ListUsersForGroup(ctx context.Context, groupID string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT u.id, u.username, u.password_hash, u.is_admin, u.last_active_url, u.created_at, u.updated_at
		     FROM users u
		     JOIN user_groups ug ON ug.user_id = u.id
		     WHERE ug.group_id = ?
		     ORDER BY u.username`),
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for group: %w", err)
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

// ListGroupsForUser retrieves a user's groups with their ordered members in
// one pass. Empty groups are included.
func (s *SQLStore) ListGroupsForUser(ctx context.Context, userID string) ([]*GroupWithURLs, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT g.id, g.name, g.description, g.created_at, g.updated_at,
		            u.id, u.title, u.target, u.mobile_target, u.icon, u.idle_timeout_seconds, u.open_external, u.created_at, u.updated_at
		     FROM user_groups ug
		     JOIN url_groups g ON g.id = ug.group_id
		     LEFT JOIN group_urls gu ON gu.group_id = g.id
		     LEFT JOIN urls u ON u.id = gu.url_id
		     WHERE ug.user_id = ?
		     ORDER BY ug.position, gu.position`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user: %w", err)
	}
	defer rows.Close()

	var (
		out     []*GroupWithURLs
		current *GroupWithURLs
	)
	for rows.Next() {
		g := URLGroup{}
		var (
			urlID, title, target   sql.NullString
			mobile, icon           sql.NullString
			idleSeconds            sql.NullInt64
			openExternal           sql.NullBool
			urlCreated, urlUpdated sql.NullTime
		)
		err := rows.Scan(
			&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt,
			&urlID, &title, &target, &mobile, &icon, &idleSeconds, &openExternal, &urlCreated, &urlUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}

		if current == nil || current.ID != g.ID {
			current = &GroupWithURLs{URLGroup: g}
			out = append(out, current)
		}
		if !urlID.Valid {
			continue // empty group
		}
		current.URLs = append(current.URLs, &URL{
			ID:                 urlID.String,
			Title:              title.String,
			Target:             target.String,
			MobileTarget:       mobile.String,
			Icon:               icon.String,
			IdleTimeoutSeconds: int(idleSeconds.Int64),
			OpenExternal:       openExternal.Bool,
			CreatedAt:          urlCreated.Time,
			UpdatedAt:          urlUpdated.Time,
		})
	}
	return out, rows.Err()
}
