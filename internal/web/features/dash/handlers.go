// Package dash serves the dashboard: the frame menu, the mounted frames,
// and the per-tab event endpoints feeding the frame manager.
//
// Every page load creates one Manager and hands the browser its token;
// the tab streams patches from /app/t/{token}/stream and posts its
// interaction events to sibling endpoints. All state-changing answers
// are 204: rendering always flows through the stream, so events and
// patches cannot race each other on the same response.
package dash

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
	"github.com/framedeck-labs/framedeck/internal/web/templates"
)

// prefsSession keeps per-browser presentation choices, currently just
// the menu layout.
const prefsSession = "framedeck-prefs"

// Handlers provides HTTP handlers for the dashboard.
type Handlers struct {
	store        store.Store
	sessionStore sessions.Store
	registry     *frame.Registry
	notifier     *notifier.Notifier
	logger       *slog.Logger
	appName      string
	layout       string
	isDev        bool
}

// NewHandlers creates a new Handlers instance. layout is the configured
// default menu placement; a browser preference overrides it.
func NewHandlers(
	st store.Store,
	sessionStore sessions.Store,
	registry *frame.Registry,
	notify *notifier.Notifier,
	logger *slog.Logger,
	appName, layout string,
	isDev bool,
) *Handlers {
	return &Handlers{
		store:        st,
		sessionStore: sessionStore,
		registry:     registry,
		notifier:     notify,
		logger:       logger,
		appName:      appName,
		layout:       layout,
		isDev:        isDev,
	}
}

// AppPage renders the dashboard shell and registers a fresh tab manager.
// The previous visit's open groups and known ids come back through the
// per-user state; the active selection and loaded set start empty.
func (h *Handlers) AppPage(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())

	groups, err := h.loadGroups(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load groups", "user", user.Username, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	mgr := frame.New(frame.Config{
		Groups:   groups,
		Store:    &userState{store: h.store, userID: user.ID},
		Logger:   h.logger,
		OnSelect: h.recordLastActive(user.ID),
	})
	token := h.registry.Add(mgr)

	layout := h.layoutFor(r)
	base := tabBase(token)
	data := templates.App{
		Shell: templates.Shell{
			Title:   "Dashboard",
			AppName: h.appName,
			User:    user,
			Dev:     h.isDev,
			Layout:  layout,
		},
		Token:  token,
		Menu:   templates.Menu{Base: base, Layout: layout, View: mgr.View()},
		Frames: templates.Frames{Base: base, Frames: mgr.Frames()},
	}
	if err := templates.Page(w, "app", data); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
	}
}

// Stream is the tab's SSE loop. Manager pings re-render the menu and
// frame fragments; notifier pings mean admin data changed, so the group
// list is re-read first and the refresh arrives through the manager's
// own ping.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	token := chi.URLParam(r, "token")

	mgr, ok := h.registry.Get(token)
	if !ok {
		// The tab outlived its server-side state; a fresh page load
		// mints a new token.
		sse := datastar.NewSSE(w, r)
		_ = sse.ExecuteScript("window.location.reload()")
		return
	}

	sse := datastar.NewSSE(w, r)
	changes := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(changes)

	base := tabBase(token)
	layout := h.layoutFor(r)

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-mgr.Events():
			if !open {
				_ = sse.ExecuteScript("window.location.reload()")
				return
			}
			h.patch(sse, mgr, base, layout)
		case <-changes:
			groups, err := h.loadGroups(r.Context(), user.ID)
			if err != nil {
				h.logger.Error("failed to reload groups", "user", user.Username, "error", err)
				_ = sse.ConsoleError(err)
				continue
			}
			// SetGroups pings the manager, which drives the patch.
			mgr.SetGroups(groups)
		}
	}
}

// patch sends the current menu and frame fragments down the stream.
func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, mgr *frame.Manager, base, layout string) {
	view := mgr.View()

	menu, err := templates.Fragment("menu", templates.Menu{Base: base, Layout: layout, View: view})
	if err != nil {
		h.logger.Error("failed to render menu fragment", "error", err)
		return
	}
	frames, err := templates.Fragment("frames", templates.Frames{
		Base:   base,
		Narrow: view.Narrow,
		Frames: mgr.Frames(),
	})
	if err != nil {
		h.logger.Error("failed to render frames fragment", "error", err)
		return
	}

	if err := sse.PatchElements(menu); err != nil {
		return
	}
	_ = sse.PatchElements(frames)
}

// Click resolves a click event. External URLs answer with a script that
// opens the new browser tab; everything else is a 204 and the outcome
// shows up through the stream.
func (h *Handlers) Click(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	result := mgr.Click(id)
	switch result.Action {
	case frame.ActionSelect:
		mgr.MarkLoaded(id)
	case frame.ActionReload:
		mgr.Reload(id)
		mgr.MarkLoaded(id)
	case frame.ActionOpenExternal:
		sse := datastar.NewSSE(w, r)
		_ = sse.ExecuteScript(fmt.Sprintf("window.open(%q, '_blank', 'noopener')", result.URL.Target))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PressDown arms the long-press gesture.
func (h *Handlers) PressDown(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.PointerDown(id) })
}

// PressUp releases the gesture before the threshold.
func (h *Handlers) PressUp(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.PointerUp(id) })
}

// PressLeave cancels the gesture when the pointer drags away.
func (h *Handlers) PressLeave(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.PointerLeave(id) })
}

// TouchStart arms the gesture from a touch sequence.
func (h *Handlers) TouchStart(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.TouchStart(id) })
}

// TouchEnd releases a touch gesture.
func (h *Handlers) TouchEnd(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.TouchEnd(id) })
}

// TouchCancel releases a touch gesture the platform stole.
func (h *Handlers) TouchCancel(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.TouchCancel(id) })
}

// Viewport records the tab's current layout class as reported by the
// client's media query.
func (h *Handlers) Viewport(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	mgr.SetNarrow(r.FormValue("narrow") == "1")
	w.WriteHeader(http.StatusNoContent)
}

// GroupToggle flips one menu group open or closed.
func (h *Handlers) GroupToggle(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	mgr.ToggleGroup(chi.URLParam(r, "gid"))
	w.WriteHeader(http.StatusNoContent)
}

// GroupSelect switches the top-menu group tab.
func (h *Handlers) GroupSelect(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	mgr.SelectGroup(chi.URLParam(r, "gid"))
	w.WriteHeader(http.StatusNoContent)
}

// FrameLoaded is the client's confirmation that an iframe finished
// loading.
func (h *Handlers) FrameLoaded(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, func(mgr *frame.Manager, id string) { mgr.MarkLoaded(id) })
}

// SetLayout stores the browser's menu placement preference and reloads
// the dashboard into it.
func (h *Handlers) SetLayout(w http.ResponseWriter, r *http.Request) {
	layout := r.FormValue("layout")
	if layout != "side" && layout != "top" {
		http.Error(w, "bad layout", http.StatusBadRequest)
		return
	}
	session, _ := h.sessionStore.Get(r, prefsSession)
	session.Values["layout"] = layout
	if err := session.Save(r, w); err != nil {
		h.logger.Error("failed to save layout preference", "error", err)
	}
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

// forward routes an event with a {id} path param into the manager and
// answers 204.
func (h *Handlers) forward(w http.ResponseWriter, r *http.Request, fn func(*frame.Manager, string)) {
	mgr, ok := h.manager(w, r)
	if !ok {
		return
	}
	fn(mgr, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// manager resolves the tab token, answering 410 for reaped tabs so the
// client knows the whole tab state is gone rather than one URL.
func (h *Handlers) manager(w http.ResponseWriter, r *http.Request) (*frame.Manager, bool) {
	mgr, ok := h.registry.Get(chi.URLParam(r, "token"))
	if !ok {
		http.Error(w, "unknown tab", http.StatusGone)
		return nil, false
	}
	return mgr, true
}

// loadGroups reads the user's menu and converts it into manager groups.
func (h *Handlers) loadGroups(ctx context.Context, userID string) ([]frame.Group, error) {
	groups, err := h.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toFrameGroups(groups), nil
}

func toFrameGroups(groups []*store.GroupWithURLs) []frame.Group {
	out := make([]frame.Group, 0, len(groups))
	for _, g := range groups {
		fg := frame.Group{ID: g.ID, Name: g.Name}
		for _, u := range g.URLs {
			fg.URLs = append(fg.URLs, frame.URL{
				ID:           u.ID,
				Title:        u.Title,
				Target:       u.Target,
				MobileTarget: u.MobileTarget,
				Icon:         u.Icon,
				IdleTimeout:  time.Duration(u.IdleTimeoutSeconds) * time.Second,
				OpenExternal: u.OpenExternal,
			})
		}
		out = append(out, fg)
	}
	return out
}

// recordLastActive persists the selection for the next sign-in. Failures
// are logged and dropped; the selection itself already happened.
func (h *Handlers) recordLastActive(userID string) func(string) {
	return func(urlID string) {
		ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
		defer cancel()
		if err := h.store.SetLastActiveURL(ctx, userID, urlID); err != nil {
			h.logger.Debug("failed to record last active url", "user", userID, "url", urlID, "error", err)
		}
	}
}

// layoutFor resolves the menu placement for this browser.
func (h *Handlers) layoutFor(r *http.Request) string {
	session, err := h.sessionStore.Get(r, prefsSession)
	if err == nil {
		if v, ok := session.Values["layout"].(string); ok && (v == "side" || v == "top") {
			return v
		}
	}
	return h.layout
}

func tabBase(token string) string {
	return "/app/t/" + token
}
