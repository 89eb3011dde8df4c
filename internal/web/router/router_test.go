package router

import (
	"net/http"
	"net/http/httptest"
	"net/url"
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
	"github.com/framedeck-labs/framedeck/internal/web/resources"
)

type routerFixture struct {
	*features.TestFixture
	Router chi.Router
	Admin  *store.User
	User   *store.User
}

func setupRouter(t *testing.T) *routerFixture {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	admin := fixture.SeedUser("root", "pw", true)
	user := fixture.SeedUser("alex", "pw", false)

	registry := frame.NewRegistry(nil)
	t.Cleanup(registry.Close)

	mux := chi.NewRouter()
	err := SetupRoutes(mux, Deps{
		Store:        fixture.Store,
		SessionStore: fixture.SessionStore,
		Registry:     registry,
		Notifier:     fixture.Notifier,
		Limiter:      auth.NewLimiter(5, time.Minute, 5*time.Minute),
		Logger:       testutil.Logger(t),
		Assets:       func() *resources.Assets { return &resources.Assets{JS: "js-bundle", CSS: "css-bundle"} },
		AppName:      "Framedeck",
		Layout:       "side",
		DataDir:      t.TempDir(),
	})
	require.NoError(t, err)

	return &routerFixture{TestFixture: fixture, Router: mux, Admin: admin, User: user}
}

func (f *routerFixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)
	return rec
}

func TestRootRedirectsToApp(t *testing.T) {
	f := setupRouter(t)

	rec := f.get("/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))
}

func TestAnonymousUserIsSentToLogin(t *testing.T) {
	f := setupRouter(t)

	rec := f.get("/app", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSignedInUserSeesDashboard(t *testing.T) {
	f := setupRouter(t)

	rec := f.get("/app", f.LoginCookie(f.User.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-tab-token")
}

func TestAdminPagesNeedTheAdminFlag(t *testing.T) {
	f := setupRouter(t)

	rec := f.get("/admin/groups", f.LoginCookie(f.User.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.get("/admin/groups", f.LoginCookie(f.Admin.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticAssetsAreServed(t *testing.T) {
	f := setupRouter(t)

	rec := f.get("/static/app.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "js-bundle", rec.Body.String())

	rec = f.get("/static/app.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "css-bundle", rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	f := setupRouter(t)

	rec := f.get("/login", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
}

func TestLoginRoundTrip(t *testing.T) {
	f := setupRouter(t)

	form := url.Values{"username": {"alex"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	page := f.get("/app", cookies[0])
	assert.Equal(t, http.StatusOK, page.Code)
}
