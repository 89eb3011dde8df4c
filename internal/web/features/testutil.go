// Package features provides shared test utilities for web feature tests.
package features

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
)

// TestFixture holds the dependencies web handler tests need: a migrated
// in-memory store, a notifier, and a cookie session store.
type TestFixture struct {
	Store        store.Store
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore

	t *testing.T
}

// SetupTestFixture creates a complete fixture backed by an in-memory
// SQLite database.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	st, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = st.Close()
	})

	return &TestFixture{
		Store:        st,
		Notifier:     notifier.New(),
		SessionStore: sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!")),
		t:            t,
	}
}

// SeedUser creates an account with the given credentials. MinCost keeps
// the hashing fast.
func (f *TestFixture) SeedUser(username, password string, admin bool) *store.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(f.t, err)

	user, err := f.Store.CreateUser(context.Background(), username, string(hash), admin)
	require.NoError(f.t, err)
	return user
}

// SeedGroupWithURLs creates a group whose members are freshly created
// URLs titled after titles, targets derived from the title.
func (f *TestFixture) SeedGroupWithURLs(name string, titles ...string) *store.GroupWithURLs {
	f.t.Helper()
	ctx := context.Background()

	group, err := f.Store.CreateGroup(ctx, name, "")
	require.NoError(f.t, err)

	out := &store.GroupWithURLs{URLGroup: *group}
	for _, title := range titles {
		u := &store.URL{
			Title:  title,
			Target: fmt.Sprintf("https://%s.example.com", title),
		}
		require.NoError(f.t, f.Store.CreateURL(ctx, u))
		require.NoError(f.t, f.Store.AddURLToGroup(ctx, group.ID, u.ID))
		out.URLs = append(out.URLs, u)
	}
	return out
}

// AssignGroup makes the group visible to the user.
func (f *TestFixture) AssignGroup(userID, groupID string) {
	f.t.Helper()
	require.NoError(f.t, f.Store.AssignGroupToUser(context.Background(), userID, groupID))
}

// LoginCookie returns a session cookie for the user, for injecting into
// test requests. The session name must match the auth package.
func (f *TestFixture) LoginCookie(userID string) *http.Cookie {
	f.t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	session, err := f.SessionStore.Get(req, "framedeck")
	require.NoError(f.t, err)
	session.Values["userID"] = userID
	require.NoError(f.t, session.Save(req, rec))

	cookies := rec.Result().Cookies()
	require.NotEmpty(f.t, cookies, "expected session cookie")
	return cookies[0]
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
