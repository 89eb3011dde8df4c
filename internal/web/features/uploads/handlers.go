// Package uploads stores URL icons under the data directory and serves
// them back. Uploaded files are sniffed, never trusted by extension, and
// renamed to opaque ids.
package uploads

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
)

// maxIconSize caps uploads at 1 MiB. Icons render at menu size, anything
// larger is a mistake.
const maxIconSize = 1 << 20

// iconExts maps sniffed content types to the extension the file is
// stored under. Anything else is rejected.
var iconExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Handlers provides HTTP handlers for icon upload, removal, and serving.
type Handlers struct {
	store    store.Store
	notifier *notifier.Notifier
	logger   *slog.Logger
	iconsDir string
}

// NewHandlers creates a new Handlers instance rooted at dataDir/icons.
func NewHandlers(st store.Store, notify *notifier.Notifier, logger *slog.Logger, dataDir string) *Handlers {
	return &Handlers{
		store:    st,
		notifier: notify,
		logger:   logger,
		iconsDir: filepath.Join(dataDir, "icons"),
	}
}

// UploadIcon accepts a multipart image, stores it under an opaque name,
// and points the URL at it. The previous icon file is removed.
func (h *Handlers) UploadIcon(w http.ResponseWriter, r *http.Request) {
	urlID := chi.URLParam(r, "id")

	u, err := h.store.GetURL(r.Context(), urlID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to load url", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIconSize)
	file, _, err := r.FormFile("icon")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "icon too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "missing icon file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "icon too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, "failed to read icon upload", err)
		return
	}

	ext, ok := iconExts[http.DetectContentType(data)]
	if !ok {
		http.Error(w, "unsupported image type", http.StatusUnsupportedMediaType)
		return
	}

	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(h.iconsDir, name), data, 0o644); err != nil {
		h.fail(w, "failed to store icon", err)
		return
	}

	old := u.Icon
	u.Icon = name
	if err := h.store.UpdateURL(r.Context(), u); err != nil {
		h.fail(w, "failed to update url icon", err)
		return
	}
	h.removeIconFile(old)

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/urls/"+urlID, http.StatusSeeOther)
}

// DeleteIcon detaches and removes the URL's icon.
func (h *Handlers) DeleteIcon(w http.ResponseWriter, r *http.Request) {
	urlID := chi.URLParam(r, "id")

	u, err := h.store.GetURL(r.Context(), urlID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to load url", err)
		return
	}

	if u.Icon != "" {
		old := u.Icon
		u.Icon = ""
		if err := h.store.UpdateURL(r.Context(), u); err != nil {
			h.fail(w, "failed to clear url icon", err)
			return
		}
		h.removeIconFile(old)
		h.notifier.Broadcast()
	}

	http.Redirect(w, r, "/admin/urls/"+urlID, http.StatusSeeOther)
}

// ServeIcon sends a stored icon. Names are opaque ids, so the content
// can be cached hard.
func (h *Handlers) ServeIcon(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeFile(w, r, filepath.Join(h.iconsDir, name))
}

// removeIconFile deletes a stored icon, tolerating files that are
// already gone.
func (h *Handlers) removeIconFile(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(filepath.Join(h.iconsDir, name)); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("failed to remove old icon", "name", name, "error", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
