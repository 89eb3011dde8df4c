// Package router assembles the HTTP surface: public auth routes, the
// signed-in dashboard, and the admin pages behind the admin guard.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
	"github.com/framedeck-labs/framedeck/internal/web/features/dash"
	"github.com/framedeck-labs/framedeck/internal/web/features/groups"
	"github.com/framedeck-labs/framedeck/internal/web/features/uploads"
	"github.com/framedeck-labs/framedeck/internal/web/features/users"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
	"github.com/framedeck-labs/framedeck/internal/web/resources"
)

// Deps carries everything route setup needs. The server owns the
// lifecycle of each of these.
type Deps struct {
	Store        store.Store
	SessionStore *sessions.CookieStore
	Registry     *frame.Registry
	Notifier     *notifier.Notifier
	Limiter      *auth.Limiter
	Logger       *slog.Logger

	// Assets returns the current bundle; nil until the first build.
	Assets func() *resources.Assets

	AppName string
	Layout  string
	DataDir string
	Dev     bool

	// Reload receives a ping when dev assets are rebuilt. Nil outside
	// dev mode.
	Reload chan struct{}
}

// SetupRoutes configures all routes for the web server.
func SetupRoutes(router chi.Router, deps Deps) error {
	router.Use(securityHeaders)

	if deps.Dev {
		setupReload(router, deps.Reload)
	}

	router.Handle("/static/*", resources.Handler(deps.Assets))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/app", http.StatusFound)
	})

	if err := auth.SetupRoutes(router, deps.Store, deps.SessionStore, deps.Limiter, deps.Logger, deps.AppName); err != nil {
		return err
	}

	// Signed-in surface: the dashboard and icon serving.
	var userErr error
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(deps.SessionStore, deps.Store))

		if err := dash.SetupRoutes(r, deps.Store, deps.SessionStore, deps.Registry, deps.Notifier, deps.Logger, deps.AppName, deps.Layout, deps.Dev); err != nil {
			userErr = err
			return
		}
		if err := uploads.SetupIconRoutes(r, deps.Store, deps.Notifier, deps.Logger, deps.DataDir); err != nil {
			userErr = err
			return
		}
	})
	if userErr != nil {
		return userErr
	}

	// Admin surface.
	var adminErr error
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(deps.SessionStore, deps.Store))
		r.Use(auth.RequireAdmin)

		if err := groups.SetupRoutes(r, deps.Store, deps.Notifier, deps.Logger, deps.AppName); err != nil {
			adminErr = err
			return
		}
		if err := users.SetupRoutes(r, deps.Store, deps.Notifier, deps.Logger, deps.AppName); err != nil {
			adminErr = err
			return
		}
		if err := uploads.SetupAdminRoutes(r, deps.Store, deps.Notifier, deps.Logger, deps.DataDir); err != nil {
			adminErr = err
			return
		}
	})
	return adminErr
}

// securityHeaders applies the response headers every page should carry.
// The app embeds third-party sites in iframes, so there is no CSP here;
// the frame targets are admin-curated.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func setupReload(router chi.Router, reloadChan chan struct{}) {
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
