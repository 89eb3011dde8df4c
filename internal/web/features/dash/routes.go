package dash

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
)

// SetupRoutes registers the dashboard page, its per-tab stream, and the
// event endpoints. The caller wraps them in the session guard.
func SetupRoutes(
	router chi.Router,
	st store.Store,
	sessionStore sessions.Store,
	registry *frame.Registry,
	notify *notifier.Notifier,
	logger *slog.Logger,
	appName, layout string,
	isDev bool,
) error {
	handlers := NewHandlers(st, sessionStore, registry, notify, logger, appName, layout, isDev)

	router.Get("/app", handlers.AppPage)
	router.Post("/app/layout", handlers.SetLayout)

	router.Route("/app/t/{token}", func(r chi.Router) {
		r.Get("/stream", handlers.Stream)
		r.Post("/click/{id}", handlers.Click)
		r.Post("/press/{id}/down", handlers.PressDown)
		r.Post("/press/{id}/up", handlers.PressUp)
		r.Post("/press/{id}/leave", handlers.PressLeave)
		r.Post("/press/{id}/touch-start", handlers.TouchStart)
		r.Post("/press/{id}/touch-end", handlers.TouchEnd)
		r.Post("/press/{id}/touch-cancel", handlers.TouchCancel)
		r.Post("/viewport", handlers.Viewport)
		r.Post("/groups/{gid}/toggle", handlers.GroupToggle)
		r.Post("/groups/{gid}/select", handlers.GroupSelect)
		r.Post("/frames/{id}/loaded", handlers.FrameLoaded)
	})

	return nil
}
