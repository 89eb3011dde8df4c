package groups

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
)

// SetupRoutes registers the group and URL administration routes. The
// caller mounts them behind the admin guard.
func SetupRoutes(router chi.Router, st store.Store, notify *notifier.Notifier, logger *slog.Logger, appName string) error {
	handlers := NewHandlers(st, notify, logger, appName)

	router.Route("/admin/groups", func(r chi.Router) {
		r.Get("/", handlers.GroupsPage)
		r.Post("/", handlers.CreateGroup)

		r.Route("/{gid}", func(r chi.Router) {
			r.Get("/", handlers.GroupEditPage)
			r.Post("/", handlers.UpdateGroup)
			r.Post("/delete", handlers.DeleteGroup)

			r.Post("/urls", handlers.AddURL)
			r.Post("/urls/new", handlers.CreateURL)
			r.Post("/urls/{id}/remove", handlers.RemoveURL)
			r.Post("/urls/{id}/move", handlers.MoveURL)

			r.Post("/users", handlers.AssignUser)
			r.Post("/users/{uid}/remove", handlers.UnassignUser)
		})
	})

	router.Route("/admin/urls/{id}", func(r chi.Router) {
		r.Get("/", handlers.URLEditPage)
		r.Post("/", handlers.UpdateURL)
		r.Post("/delete", handlers.DeleteURL)
	})

	return nil
}
