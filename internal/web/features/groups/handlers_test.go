package groups

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/testutil"
	"github.com/framedeck-labs/framedeck/internal/web/features"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
)

type groupsFixture struct {
	*features.TestFixture
	Router chi.Router
	Admin  *store.User
}

func setupGroups(t *testing.T) *groupsFixture {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	admin := fixture.SeedUser("root", "pw", true)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), admin)))
		})
	})
	require.NoError(t, SetupRoutes(router, fixture.Store, fixture.Notifier, testutil.Logger(t), "Framedeck"))

	return &groupsFixture{TestFixture: fixture, Router: router, Admin: admin}
}

func (f *groupsFixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *groupsFixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)
	return rec
}

func memberIDs(t *testing.T, f *groupsFixture, groupID string) []string {
	t.Helper()
	members, err := f.Store.ListGroupURLs(context.Background(), groupID)
	require.NoError(t, err)
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

func TestGroupsPage(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail", "wiki")
	user := f.SeedUser("alex", "pw", false)
	f.AssignGroup(user.ID, group.ID)

	rec := f.get("/admin/groups")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Work")
	assert.Contains(t, body, "/admin/groups/"+group.ID)
}

func TestCreateGroup(t *testing.T) {
	f := setupGroups(t)

	rec := f.post("/admin/groups", url.Values{"name": {"Ops"}, "description": {"tooling"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/admin/groups/"), "redirects into the new group")

	groups, err := f.Store.ListGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Ops", groups[0].Name)
	assert.Equal(t, "tooling", groups[0].Description)
}

func TestCreateGroupRequiresName(t *testing.T) {
	f := setupGroups(t)

	rec := f.post("/admin/groups", url.Values{"name": {"   "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Group name is required.")
}

func TestGroupEditPage(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail", "wiki")
	user := f.SeedUser("alex", "pw", false)
	f.AssignGroup(user.ID, group.ID)

	loose := &store.URL{Title: "notes", Target: "https://notes.example.com"}
	require.NoError(t, f.Store.CreateURL(context.Background(), loose))
	outsider := f.SeedUser("morgan", "pw", false)

	rec := f.get("/admin/groups/" + group.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "mail")
	assert.Contains(t, body, "wiki")
	assert.Contains(t, body, loose.ID, "unattached URLs are offered for adding")
	assert.Contains(t, body, "alex")
	assert.Contains(t, body, outsider.ID, "users without the group are offered for assignment")
}

func TestGroupEditPageUnknownGroup(t *testing.T) {
	f := setupGroups(t)
	rec := f.get("/admin/groups/no-such-group")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateGroup(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work")

	rec := f.post("/admin/groups/"+group.ID, url.Values{"name": {"Renamed"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := f.Store.GetGroup(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestDeleteGroupKeepsURLs(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	mail := group.URLs[0]

	rec := f.post("/admin/groups/"+group.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/groups", rec.Header().Get("Location"))

	_, err := f.Store.GetGroup(context.Background(), group.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The URL itself survives for other groups.
	_, err = f.Store.GetURL(context.Background(), mail.ID)
	assert.NoError(t, err)
}

func TestAddAndRemoveURL(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	loose := &store.URL{Title: "notes", Target: "https://notes.example.com"}
	require.NoError(t, f.Store.CreateURL(context.Background(), loose))

	f.post("/admin/groups/"+group.ID+"/urls", url.Values{"url_id": {loose.ID}})
	assert.Equal(t, []string{group.URLs[0].ID, loose.ID}, memberIDs(t, f, group.ID))

	f.post("/admin/groups/"+group.ID+"/urls/"+loose.ID+"/remove", nil)
	assert.Equal(t, []string{group.URLs[0].ID}, memberIDs(t, f, group.ID))
}

func TestCreateURLInGroup(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")

	rec := f.post("/admin/groups/"+group.ID+"/urls/new", url.Values{
		"title":  {"Notes"},
		"target": {"https://notes.example.com"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	members, err := f.Store.ListGroupURLs(context.Background(), group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Notes", members[1].Title, "new URLs append at the end")
}

func TestCreateURLValidatesTarget(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work")

	tests := []struct {
		name   string
		target string
	}{
		{"empty", ""},
		{"relative", "/dashboard"},
		{"script scheme", "javascript:alert(1)"},
		{"no host", "https://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.post("/admin/groups/"+group.ID+"/urls/new", url.Values{
				"title":  {"Bad"},
				"target": {tt.target},
			})
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}

	members, err := f.Store.ListGroupURLs(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMoveURL(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "a", "b", "c")
	a, b, c := group.URLs[0].ID, group.URLs[1].ID, group.URLs[2].ID

	f.post("/admin/groups/"+group.ID+"/urls/"+c+"/move", url.Values{"dir": {"up"}})
	assert.Equal(t, []string{a, c, b}, memberIDs(t, f, group.ID))

	// Moving past the edges changes nothing.
	f.post("/admin/groups/"+group.ID+"/urls/"+a+"/move", url.Values{"dir": {"up"}})
	assert.Equal(t, []string{a, c, b}, memberIDs(t, f, group.ID))

	f.post("/admin/groups/"+group.ID+"/urls/"+b+"/move", url.Values{"dir": {"down"}})
	assert.Equal(t, []string{a, c, b}, memberIDs(t, f, group.ID))
}

func TestAssignAndUnassignUser(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	user := f.SeedUser("alex", "pw", false)

	f.post("/admin/groups/"+group.ID+"/users", url.Values{"user_id": {user.ID}})
	assigned, err := f.Store.ListUserGroups(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, group.ID, assigned[0].ID)

	f.post("/admin/groups/"+group.ID+"/users/"+user.ID+"/remove", nil)
	assigned, err = f.Store.ListUserGroups(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)
}

func TestURLEditPage(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	mail := group.URLs[0]

	rec := f.get("/admin/urls/" + mail.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, mail.Target)
	assert.Contains(t, body, "Work", "the page lists the groups carrying this URL")
}

func TestUpdateURL(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	mail := group.URLs[0]

	rec := f.post("/admin/urls/"+mail.ID, url.Values{
		"title":                {"Mail"},
		"target":               {"https://mail.example.com/inbox"},
		"mobile_target":        {"https://m.mail.example.com"},
		"idle_timeout_seconds": {"300"},
		"open_external":        {"on"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := f.Store.GetURL(context.Background(), mail.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mail", got.Title)
	assert.Equal(t, "https://mail.example.com/inbox", got.Target)
	assert.Equal(t, "https://m.mail.example.com", got.MobileTarget)
	assert.Equal(t, 300, got.IdleTimeoutSeconds)
	assert.True(t, got.OpenExternal)
}

func TestUpdateURLValidatesIdleTimeout(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	mail := group.URLs[0]

	rec := f.post("/admin/urls/"+mail.ID, url.Values{
		"title":                {"Mail"},
		"target":               {mail.Target},
		"idle_timeout_seconds": {"-5"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Idle timeout")
}

func TestDeleteURL(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")
	mail := group.URLs[0]

	rec := f.post("/admin/urls/"+mail.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, err := f.Store.GetURL(context.Background(), mail.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, memberIDs(t, f, group.ID), "membership rows go with the URL")
}

func TestMutationsBroadcast(t *testing.T) {
	f := setupGroups(t)
	group := f.SeedGroupWithURLs("Work", "mail")

	ch := f.Notifier.Subscribe()
	defer f.Notifier.Unsubscribe(ch)

	f.post("/admin/groups/"+group.ID, url.Values{"name": {"Renamed"}})

	select {
	case <-ch:
	default:
		t.Fatal("expected a broadcast after an admin mutation")
	}
}
