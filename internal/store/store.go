// Package store persists users, URL groups, URLs, and their orderings
// behind a driver-agnostic Store interface. SQLite (pure Go driver) is the
// default backend; Postgres is supported for shared deployments.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned (wrapped) whenever a lookup or mutation targets
// an id that does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned by CreateUser when the normalized username
// already exists.
var ErrUsernameTaken = errors.New("username already taken")

// Store is everything the web and CLI layers need from persistence.
type Store interface {
	// Users
	CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	SetUserAdmin(ctx context.Context, id string, isAdmin bool) error
	SetLastActiveURL(ctx context.Context, userID, urlID string) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)

	// Groups
	CreateGroup(ctx context.Context, name, description string) (*URLGroup, error)
	GetGroup(ctx context.Context, id string) (*URLGroup, error)
	ListGroups(ctx context.Context) ([]*URLGroup, error)
	UpdateGroup(ctx context.Context, id, name, description string) error
	DeleteGroup(ctx context.Context, id string) error
	CountGroups(ctx context.Context) (int, error)

	// URLs
	CreateURL(ctx context.Context, u *URL) error
	GetURL(ctx context.Context, id string) (*URL, error)
	ListURLs(ctx context.Context) ([]*URL, error)
	UpdateURL(ctx context.Context, u *URL) error
	DeleteURL(ctx context.Context, id string) error
	CountURLs(ctx context.Context) (int, error)

	// Membership and assignment
	AddURLToGroup(ctx context.Context, groupID, urlID string) error
	RemoveURLFromGroup(ctx context.Context, groupID, urlID string) error
	SetGroupURLOrder(ctx context.Context, groupID string, urlIDs []string) error
	ListGroupURLs(ctx context.Context, groupID string) ([]*URL, error)
	AssignGroupToUser(ctx context.Context, userID, groupID string) error
	RemoveGroupFromUser(ctx context.Context, userID, groupID string) error
	SetUserGroupOrder(ctx context.Context, userID string, groupIDs []string) error
	ListUserGroups(ctx context.Context, userID string) ([]*URLGroup, error)
	ListUsersForGroup(ctx context.Context, groupID string) ([]*User, error)

	// ListGroupsForUser returns the user's assigned groups in assignment
	// order, each with its URLs in membership order. This is the one read
	// the dashboard performs.
	ListGroupsForUser(ctx context.Context, userID string) ([]*GroupWithURLs, error)

	// Frame state is the per-user blob the dashboard rehydrates on page
	// load (open groups, known URL ids). Opaque to the store.
	GetFrameState(ctx context.Context, userID string) (string, error)
	SaveFrameState(ctx context.Context, userID, state string) error

	Migrate(ctx context.Context) error
	Close() error
}

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}
