package auth

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/framedeck-labs/framedeck/internal/store"
)

// SetupRoutes registers the sign-in and sign-out routes.
func SetupRoutes(
	router chi.Router,
	st store.Store,
	sessionStore sessions.Store,
	limiter *Limiter,
	logger *slog.Logger,
	appName string,
) error {
	handlers := NewHandlers(st, sessionStore, limiter, logger, appName)

	router.Get("/login", handlers.LoginPage)
	router.Post("/login", handlers.Login)
	router.Post("/logout", handlers.Logout)

	return nil
}
