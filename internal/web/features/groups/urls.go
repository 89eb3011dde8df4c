package groups

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/templates"
)

// URLEditPage shows the full settings form for one URL, including which
// groups carry it.
func (h *Handlers) URLEditPage(w http.ResponseWriter, r *http.Request) {
	h.renderURLEdit(w, r, "")
}

func (h *Handlers) renderURLEdit(w http.ResponseWriter, r *http.Request, errMsg string) {
	ctx := r.Context()
	urlID := chi.URLParam(r, "id")

	u, err := h.store.GetURL(ctx, urlID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to load url", err)
		return
	}

	groups, err := h.store.ListGroups(ctx)
	if err != nil {
		h.fail(w, "failed to list groups", err)
		return
	}
	var inGroups []*store.URLGroup
	for _, g := range groups {
		members, err := h.store.ListGroupURLs(ctx, g.ID)
		if err != nil {
			h.fail(w, "failed to list members", err)
			return
		}
		for _, m := range members {
			if m.ID == urlID {
				inGroups = append(inGroups, g)
				break
			}
		}
	}

	if errMsg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	h.render(w, "admin_url_edit", templates.AdminURLEdit{
		Shell:    h.shell(r, u.Title),
		EditURL:  u,
		InGroups: inGroups,
		Error:    errMsg,
	})
}

// UpdateURL applies the settings form.
func (h *Handlers) UpdateURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	urlID := chi.URLParam(r, "id")

	u, err := h.store.GetURL(ctx, urlID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to load url", err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	target := strings.TrimSpace(r.FormValue("target"))
	if msg := validateURLForm(title, target); msg != "" {
		h.renderURLEdit(w, r, msg)
		return
	}
	mobileTarget := strings.TrimSpace(r.FormValue("mobile_target"))
	if mobileTarget != "" && validateTarget(mobileTarget) != "" {
		h.renderURLEdit(w, r, "Mobile target must be an absolute http(s) URL.")
		return
	}
	idle := 0
	if raw := strings.TrimSpace(r.FormValue("idle_timeout_seconds")); raw != "" {
		idle, err = strconv.Atoi(raw)
		if err != nil || idle < 0 {
			h.renderURLEdit(w, r, "Idle timeout must be a non-negative number of seconds.")
			return
		}
	}

	u.Title = title
	u.Target = target
	u.MobileTarget = mobileTarget
	u.IdleTimeoutSeconds = idle
	u.OpenExternal = r.FormValue("open_external") == "on"

	if err := h.store.UpdateURL(ctx, u); err != nil {
		h.fail(w, "failed to update url", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/urls/"+urlID, http.StatusSeeOther)
}

// DeleteURL removes the URL everywhere: from every group and from every
// user's recorded last selection.
func (h *Handlers) DeleteURL(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, "failed to delete url", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups", http.StatusSeeOther)
}
