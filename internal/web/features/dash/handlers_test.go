package dash

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/testutil"
	"github.com/framedeck-labs/framedeck/internal/web/features"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
)

var tokenRe = regexp.MustCompile(`data-tab-token="([^"]+)"`)

type dashFixture struct {
	*features.TestFixture
	Router   chi.Router
	Registry *frame.Registry
	User     *store.User
	Group    *store.GroupWithURLs
}

// setupDash wires the dashboard routes behind a middleware that signs
// every request in as the seeded user.
func setupDash(t *testing.T) *dashFixture {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	user := fixture.SeedUser("alex", "pw", false)
	group := fixture.SeedGroupWithURLs("Work", "mail", "wiki")
	fixture.AssignGroup(user.ID, group.ID)

	registry := frame.NewRegistry(nil)
	t.Cleanup(registry.Close)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	})
	require.NoError(t, SetupRoutes(
		router,
		fixture.Store,
		fixture.SessionStore,
		registry,
		fixture.Notifier,
		testutil.Logger(t),
		"Framedeck",
		"side",
		false,
	))

	return &dashFixture{
		TestFixture: fixture,
		Router:      router,
		Registry:    registry,
		User:        user,
		Group:       group,
	}
}

func (f *dashFixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

// openTab loads the dashboard page and resolves its manager.
func (f *dashFixture) openTab(t *testing.T) (string, *frame.Manager) {
	t.Helper()
	rec := f.do(http.MethodGet, "/app")
	require.Equal(t, http.StatusOK, rec.Code)

	m := tokenRe.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "page must embed the tab token")

	mgr, ok := f.Registry.Get(m[1])
	require.True(t, ok)
	return m[1], mgr
}

// pressing reports whether the view shows an armed press on id.
func pressing(v frame.View, id string) bool {
	for _, g := range v.Groups {
		for _, u := range g.URLs {
			if u.URL.ID == id {
				return u.Pressing
			}
		}
	}
	return false
}

func TestAppPage(t *testing.T) {
	f := setupDash(t)

	rec := f.do(http.MethodGet, "/app")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "data-tab-token=")
	assert.Contains(t, body, `id="menu"`)
	assert.Contains(t, body, `id="frames"`)
	assert.Contains(t, body, "Work")
	assert.Contains(t, body, "frames-empty", "nothing is loaded on a fresh tab")
	assert.NotContains(t, body, "url-item", "groups start collapsed on a first visit")

	assert.Equal(t, 1, f.Registry.Len())
}

func TestAppPageRestoresPersistedState(t *testing.T) {
	f := setupDash(t)
	mail := f.Group.URLs[0].ID

	blob := fmt.Sprintf(`{"openGroups":{%q:true},"knownUrls":[%q]}`, f.Group.ID, mail)
	require.NoError(t, f.Store.SaveFrameState(context.Background(), f.User.ID, blob))

	rec := f.do(http.MethodGet, "/app")
	body := rec.Body.String()

	assert.Contains(t, body, "url-item", "persisted open group renders expanded")
	assert.Contains(t, body, "known")
	// Active selection and loaded frames never survive a page load.
	assert.Contains(t, body, "frames-empty")
	assert.NotContains(t, body, "status-active-loaded")
}

func TestClickSelectsAndLoads(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)
	mail, wiki := f.Group.URLs[0].ID, f.Group.URLs[1].ID

	rec := f.do(http.MethodPost, "/app/t/"+token+"/click/"+mail)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, mail, mgr.ActiveURLID())
	assert.Equal(t, frame.StatusActiveLoaded, mgr.Status(mail))

	// Switching keeps the previous frame mounted in the background.
	f.do(http.MethodPost, "/app/t/"+token+"/click/"+wiki)
	assert.Equal(t, frame.StatusActiveLoaded, mgr.Status(wiki))
	assert.Equal(t, frame.StatusInactiveLoaded, mgr.Status(mail))
}

func TestClickActiveURLReloads(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)
	mail := f.Group.URLs[0].ID

	f.do(http.MethodPost, "/app/t/"+token+"/click/"+mail)
	require.Equal(t, 0, mgr.FrameGen(mail))

	f.do(http.MethodPost, "/app/t/"+token+"/click/"+mail)
	assert.Equal(t, 1, mgr.FrameGen(mail), "re-clicking the active URL forces a fresh frame")
	assert.Equal(t, frame.StatusActiveLoaded, mgr.Status(mail))
}

func TestClickUnknownURLIsIgnored(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)

	rec := f.do(http.MethodPost, "/app/t/"+token+"/click/no-such-url")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, mgr.ActiveURLID())
}

func TestClickExternalURL(t *testing.T) {
	f := setupDash(t)
	ctx := context.Background()

	ext := &store.URL{Title: "handbook", Target: "https://handbook.example.com", OpenExternal: true}
	require.NoError(t, f.Store.CreateURL(ctx, ext))
	require.NoError(t, f.Store.AddURLToGroup(ctx, f.Group.ID, ext.ID))

	token, mgr := f.openTab(t)
	rec := f.do(http.MethodPost, "/app/t/"+token+"/click/"+ext.ID)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "window.open")
	assert.Contains(t, body, "https://handbook.example.com")

	// Manager state untouched: no selection, no frame.
	assert.Empty(t, mgr.ActiveURLID())
	assert.False(t, mgr.Loaded(ext.ID))
}

func TestPressEndpoints(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)
	mail := f.Group.URLs[0].ID
	base := "/app/t/" + token

	f.do(http.MethodPost, base+"/click/"+mail)

	rec := f.do(http.MethodPost, base+"/press/"+mail+"/down")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, pressing(mgr.View(), mail))

	f.do(http.MethodPost, base+"/press/"+mail+"/up")
	assert.False(t, pressing(mgr.View(), mail))

	f.do(http.MethodPost, base+"/press/"+mail+"/touch-start")
	assert.True(t, pressing(mgr.View(), mail))

	f.do(http.MethodPost, base+"/press/"+mail+"/touch-cancel")
	assert.False(t, pressing(mgr.View(), mail))
}

func TestPressOnUnloadedURLDoesNotArm(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)
	wiki := f.Group.URLs[1].ID

	f.do(http.MethodPost, "/app/t/"+token+"/press/"+wiki+"/down")
	assert.False(t, pressing(mgr.View(), wiki), "unloaded URLs have nothing to unload")
}

func TestViewport(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)

	rec := f.do(http.MethodPost, "/app/t/"+token+"/viewport?narrow=1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, mgr.View().Narrow)

	f.do(http.MethodPost, "/app/t/"+token+"/viewport?narrow=0")
	assert.False(t, mgr.View().Narrow)
}

func TestGroupToggleAndSelect(t *testing.T) {
	f := setupDash(t)
	media := f.SeedGroupWithURLs("Media", "tube")
	f.AssignGroup(f.User.ID, media.ID)

	token, mgr := f.openTab(t)
	base := "/app/t/" + token

	f.do(http.MethodPost, base+"/groups/"+f.Group.ID+"/toggle")
	assert.True(t, mgr.OpenGroups()[f.Group.ID])
	f.do(http.MethodPost, base+"/groups/"+f.Group.ID+"/toggle")
	assert.False(t, mgr.OpenGroups()[f.Group.ID])

	// With nothing active, the top-menu selection is free to move.
	f.do(http.MethodPost, base+"/groups/"+media.ID+"/select")
	assert.Equal(t, media.ID, mgr.ActiveGroupID())
}

func TestFrameLoadedConfirmation(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)
	mail := f.Group.URLs[0].ID
	base := "/app/t/" + token

	f.do(http.MethodPost, base+"/click/"+mail)
	rec := f.do(http.MethodPost, base+"/frames/"+mail+"/loaded")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, mgr.Loaded(mail))

	// Confirmations for vanished URLs are dropped.
	rec = f.do(http.MethodPost, base+"/frames/no-such-url/loaded")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStaleTokenAnswers(t *testing.T) {
	f := setupDash(t)

	rec := f.do(http.MethodPost, "/app/t/stale-token/click/anything")
	assert.Equal(t, http.StatusGone, rec.Code)

	// The stream instead tells the tab to reload itself into a new token.
	rec = f.do(http.MethodGet, "/app/t/stale-token/stream")
	assert.Contains(t, rec.Body.String(), "window.location.reload()")
}

func TestStreamPatchesOnManagerEvents(t *testing.T) {
	f := setupDash(t)
	token, mgr := f.openTab(t)
	mail := f.Group.URLs[0].ID

	req := httptest.NewRequest(http.MethodGet, "/app/t/"+token+"/stream", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		f.Router.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	mgr.Select(mail)
	mgr.MarkLoaded(mail)

	<-done
	body := rec.Body.String()

	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1, "selection should stream a patch")
	assert.Contains(t, body, "status-active-loaded")
	assert.Contains(t, body, fmt.Sprintf(`id="frame-%s-0"`, mail), "the frame mounts through the stream")
}

func TestStreamRefreshesOnBroadcast(t *testing.T) {
	f := setupDash(t)
	token, _ := f.openTab(t)

	req := httptest.NewRequest(http.MethodGet, "/app/t/"+token+"/stream", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		f.Router.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, f.Store.UpdateGroup(context.Background(), f.Group.ID, "Renamed", ""))
	f.Notifier.Broadcast()

	<-done
	body := rec.Body.String()

	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, "Renamed", "admin changes reach the menu without a reload")
}

func TestSetLayout(t *testing.T) {
	f := setupDash(t)

	form := strings.NewReader("layout=top")
	req := httptest.NewRequest(http.MethodPost, "/app/layout", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// The next page load honors the preference.
	req = httptest.NewRequest(http.MethodGet, "/app", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "layout-top")
	assert.Contains(t, rec.Body.String(), "Side menu", "toggle offers the other placement")
}

func TestSetLayoutRejectsUnknownValues(t *testing.T) {
	f := setupDash(t)

	req := httptest.NewRequest(http.MethodPost, "/app/layout", strings.NewReader("layout=diagonal"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClickRecordsLastActiveURL(t *testing.T) {
	f := setupDash(t)
	token, _ := f.openTab(t)
	mail := f.Group.URLs[0].ID

	f.do(http.MethodPost, "/app/t/"+token+"/click/"+mail)

	assert.Eventually(t, func() bool {
		u, err := f.Store.GetUser(context.Background(), f.User.ID)
		return err == nil && u.LastActiveURL == mail
	}, time.Second, 10*time.Millisecond, "selection should be recorded for the next visit")
}

func TestOpenGroupsSurvivePageLoads(t *testing.T) {
	f := setupDash(t)
	token, _ := f.openTab(t)
	mail := f.Group.URLs[0].ID

	// Selecting auto-expands the group and persists it with the known id.
	f.do(http.MethodPost, "/app/t/"+token+"/click/"+mail)

	rec := f.do(http.MethodGet, "/app")
	body := rec.Body.String()

	assert.Contains(t, body, "url-item", "the group comes back expanded")
	assert.Contains(t, body, "known")
	assert.Contains(t, body, "frames-empty", "loaded frames do not survive the reload")
	assert.NotContains(t, body, "status-active-loaded")
}
