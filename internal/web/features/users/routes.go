package users

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
)

// SetupRoutes mounts the user admin pages. The caller wraps them in the
// admin guard.
func SetupRoutes(router chi.Router, st store.Store, notify *notifier.Notifier, logger *slog.Logger, appName string) error {
	handlers := NewHandlers(st, notify, logger, appName)

	router.Route("/admin/users", func(r chi.Router) {
		r.Get("/", handlers.UsersPage)
		r.Post("/", handlers.CreateUser)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.UserEditPage)
			r.Post("/delete", handlers.DeleteUser)
			r.Post("/admin", handlers.SetAdmin)
			r.Post("/password", handlers.ResetPassword)
			r.Post("/groups", handlers.AssignGroup)
			r.Post("/groups/{gid}/move", handlers.MoveGroup)
			r.Post("/groups/{gid}/remove", handlers.RemoveGroup)
		})
	})

	return nil
}
