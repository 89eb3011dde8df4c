package uploads

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
)

// SetupAdminRoutes mounts icon upload and removal. The caller wraps them
// in the admin guard.
func SetupAdminRoutes(router chi.Router, st store.Store, notify *notifier.Notifier, logger *slog.Logger, dataDir string) error {
	handlers := NewHandlers(st, notify, logger, dataDir)
	if err := os.MkdirAll(handlers.iconsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create icons dir: %w", err)
	}

	router.Post("/admin/urls/{id}/icon", handlers.UploadIcon)
	router.Post("/admin/urls/{id}/icon/delete", handlers.DeleteIcon)

	return nil
}

// SetupIconRoutes mounts icon serving for signed-in users.
func SetupIconRoutes(router chi.Router, st store.Store, notify *notifier.Notifier, logger *slog.Logger, dataDir string) error {
	handlers := NewHandlers(st, notify, logger, dataDir)

	router.Get("/icons/{name}", handlers.ServeIcon)

	return nil
}
