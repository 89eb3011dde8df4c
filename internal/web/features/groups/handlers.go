// Package groups provides the admin pages for URL groups: CRUD, ordered
// membership, and group-to-user assignment.
package groups

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
	"github.com/framedeck-labs/framedeck/internal/web/templates"
)

// Handlers provides HTTP handlers for group administration.
type Handlers struct {
	store    store.Store
	notifier *notifier.Notifier
	logger   *slog.Logger
	appName  string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st store.Store, notify *notifier.Notifier, logger *slog.Logger, appName string) *Handlers {
	return &Handlers{
		store:    st,
		notifier: notify,
		logger:   logger,
		appName:  appName,
	}
}

// GroupsPage lists every group with its membership counts.
func (h *Handlers) GroupsPage(w http.ResponseWriter, r *http.Request) {
	h.renderGroups(w, r, "")
}

func (h *Handlers) renderGroups(w http.ResponseWriter, r *http.Request, errMsg string) {
	groups, err := h.store.ListGroups(r.Context())
	if err != nil {
		h.fail(w, "failed to list groups", err)
		return
	}

	rows := make([]templates.GroupRow, 0, len(groups))
	for _, g := range groups {
		urls, err := h.store.ListGroupURLs(r.Context(), g.ID)
		if err != nil {
			h.fail(w, "failed to list group urls", err)
			return
		}
		users, err := h.store.ListUsersForGroup(r.Context(), g.ID)
		if err != nil {
			h.fail(w, "failed to list group users", err)
			return
		}
		rows = append(rows, templates.GroupRow{Group: g, URLs: len(urls), Users: len(users)})
	}

	if errMsg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	h.render(w, "admin_groups", templates.AdminGroups{
		Shell:  h.shell(r, "Groups"),
		Groups: rows,
		Error:  errMsg,
	})
}

// CreateGroup adds a group and returns to the listing.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		h.renderGroups(w, r, "Group name is required.")
		return
	}

	group, err := h.store.CreateGroup(r.Context(), name, strings.TrimSpace(r.FormValue("description")))
	if err != nil {
		h.fail(w, "failed to create group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+group.ID, http.StatusSeeOther)
}

// GroupEditPage shows one group: its ordered members, the URLs that
// could still be added, and the users holding it.
func (h *Handlers) GroupEditPage(w http.ResponseWriter, r *http.Request) {
	h.renderGroupEdit(w, r, "")
}

func (h *Handlers) renderGroupEdit(w http.ResponseWriter, r *http.Request, errMsg string) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "gid")

	group, err := h.store.GetGroup(ctx, groupID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to load group", err)
		return
	}

	members, err := h.store.ListGroupURLs(ctx, groupID)
	if err != nil {
		h.fail(w, "failed to list members", err)
		return
	}
	allURLs, err := h.store.ListURLs(ctx)
	if err != nil {
		h.fail(w, "failed to list urls", err)
		return
	}
	assigned, err := h.store.ListUsersForGroup(ctx, groupID)
	if err != nil {
		h.fail(w, "failed to list assigned users", err)
		return
	}
	allUsers, err := h.store.ListUsers(ctx)
	if err != nil {
		h.fail(w, "failed to list users", err)
		return
	}

	inGroup := make(map[string]bool, len(members))
	for _, u := range members {
		inGroup[u.ID] = true
	}
	available := make([]*store.URL, 0, len(allURLs))
	for _, u := range allURLs {
		if !inGroup[u.ID] {
			available = append(available, u)
		}
	}

	holds := make(map[string]bool, len(assigned))
	for _, u := range assigned {
		holds[u.ID] = true
	}
	unassigned := make([]*store.User, 0, len(allUsers))
	for _, u := range allUsers {
		if !holds[u.ID] {
			unassigned = append(unassigned, u)
		}
	}

	if errMsg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	h.render(w, "admin_group_edit", templates.AdminGroupEdit{
		Shell:      h.shell(r, group.Name),
		Group:      group,
		Members:    members,
		Available:  available,
		Assigned:   assigned,
		Unassigned: unassigned,
		Error:      errMsg,
	})
}

// UpdateGroup renames a group.
func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		h.renderGroupEdit(w, r, "Group name is required.")
		return
	}

	err := h.store.UpdateGroup(r.Context(), groupID, name, strings.TrimSpace(r.FormValue("description")))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to update group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// DeleteGroup removes a group. Its URLs survive; memberships and
// assignments go with it.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteGroup(r.Context(), chi.URLParam(r, "gid"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, "failed to delete group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups", http.StatusSeeOther)
}

// AddURL puts an existing URL at the end of the group.
func (h *Handlers) AddURL(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")
	urlID := r.FormValue("url_id")
	if urlID == "" {
		http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
		return
	}

	err := h.store.AddURLToGroup(r.Context(), groupID, urlID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to add url to group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// CreateURL makes a new URL and adds it to the group in one step.
func (h *Handlers) CreateURL(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")
	title := strings.TrimSpace(r.FormValue("title"))
	target := strings.TrimSpace(r.FormValue("target"))
	if msg := validateURLForm(title, target); msg != "" {
		h.renderGroupEdit(w, r, msg)
		return
	}

	u := &store.URL{Title: title, Target: target}
	if err := h.store.CreateURL(r.Context(), u); err != nil {
		h.fail(w, "failed to create url", err)
		return
	}
	if err := h.store.AddURLToGroup(r.Context(), groupID, u.ID); err != nil {
		h.fail(w, "failed to add url to group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// RemoveURL drops a URL from the group without deleting the URL itself.
func (h *Handlers) RemoveURL(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")

	err := h.store.RemoveURLFromGroup(r.Context(), groupID, chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, "failed to remove url from group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// MoveURL shifts a member one position up or down.
func (h *Handlers) MoveURL(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")
	urlID := chi.URLParam(r, "id")
	dir := r.FormValue("dir")

	members, err := h.store.ListGroupURLs(r.Context(), groupID)
	if err != nil {
		h.fail(w, "failed to list members", err)
		return
	}

	order := make([]string, len(members))
	for i, u := range members {
		order[i] = u.ID
	}
	if moved := moveID(order, urlID, dir); moved {
		if err := h.store.SetGroupURLOrder(r.Context(), groupID, order); err != nil {
			h.fail(w, "failed to reorder group", err)
			return
		}
		h.notifier.Broadcast()
	}

	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// AssignUser gives the group to a user, appended to their menu.
func (h *Handlers) AssignUser(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")
	userID := r.FormValue("user_id")
	if userID == "" {
		http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
		return
	}

	err := h.store.AssignGroupToUser(r.Context(), userID, groupID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to assign group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// UnassignUser takes the group away from a user.
func (h *Handlers) UnassignUser(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "gid")

	err := h.store.RemoveGroupFromUser(r.Context(), chi.URLParam(r, "uid"), groupID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, "failed to unassign group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/groups/"+groupID, http.StatusSeeOther)
}

// moveID swaps id with its neighbor in the direction dir. It reports
// whether anything changed.
func moveID(order []string, id, dir string) bool {
	for i, v := range order {
		if v != id {
			continue
		}
		switch dir {
		case "up":
			if i == 0 {
				return false
			}
			order[i-1], order[i] = order[i], order[i-1]
			return true
		case "down":
			if i == len(order)-1 {
				return false
			}
			order[i], order[i+1] = order[i+1], order[i]
			return true
		}
		return false
	}
	return false
}

// validateURLForm checks the fields shared by URL create and update
// forms, returning a message for the admin or "".
func validateURLForm(title, target string) string {
	if title == "" {
		return "Title is required."
	}
	return validateTarget(target)
}

func validateTarget(target string) string {
	if target == "" {
		return "Target URL is required."
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "Target must be an absolute http(s) URL."
	}
	return ""
}

func (h *Handlers) shell(r *http.Request, title string) templates.Shell {
	return templates.Shell{
		Title:   title,
		AppName: h.appName,
		User:    auth.CurrentUser(r.Context()),
	}
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	if err := templates.Page(w, name, data); err != nil {
		h.logger.Error("failed to render page", "template", name, "error", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
