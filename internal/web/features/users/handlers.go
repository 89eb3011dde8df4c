// Package users provides the admin pages for accounts: creation, the
// admin flag, password resets, and per-user group assignment.
package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
	"github.com/framedeck-labs/framedeck/internal/web/templates"
)

// Handlers provides HTTP handlers for user administration.
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

// UsersPage lists every account.
func (h *Handlers) UsersPage(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, "")
}

func (h *Handlers) renderUsers(w http.ResponseWriter, r *http.Request, errMsg string) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "failed to list users", err)
		return
	}

	if errMsg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	h.render(w, "admin_users", templates.AdminUsers{
		Shell: h.shell(r, "Users"),
		Users: users,
		Error: errMsg,
	})
}

// CreateUser adds an account and opens its edit page.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	username := store.NormalizeUsername(r.FormValue("username"))
	password := r.FormValue("password")
	switch {
	case username == "":
		h.renderUsers(w, r, "Username is required.")
		return
	case password == "":
		h.renderUsers(w, r, "Password is required.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, "failed to hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), username, string(hash), r.FormValue("is_admin") == "on")
	if errors.Is(err, store.ErrUsernameTaken) {
		h.renderUsers(w, r, "That username is already taken.")
		return
	}
	if err != nil {
		h.fail(w, "failed to create user", err)
		return
	}

	http.Redirect(w, r, "/admin/users/"+user.ID, http.StatusSeeOther)
}

// DeleteUser removes an account and everything hanging off it. Admins
// cannot delete themselves.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if self := auth.CurrentUser(r.Context()); self != nil && self.ID == userID {
		h.renderUsers(w, r, "You cannot delete your own account.")
		return
	}

	err := h.store.DeleteUser(r.Context(), userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, "failed to delete user", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// UserEditPage shows one account: role, password reset, and the groups
// it holds in menu order.
func (h *Handlers) UserEditPage(w http.ResponseWriter, r *http.Request) {
	h.renderUserEdit(w, r, "")
}

func (h *Handlers) renderUserEdit(w http.ResponseWriter, r *http.Request, errMsg string) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	user, err := h.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to load user", err)
		return
	}

	assigned, err := h.store.ListUserGroups(ctx, userID)
	if err != nil {
		h.fail(w, "failed to list user groups", err)
		return
	}
	allGroups, err := h.store.ListGroups(ctx)
	if err != nil {
		h.fail(w, "failed to list groups", err)
		return
	}

	holds := make(map[string]bool, len(assigned))
	for _, g := range assigned {
		holds[g.ID] = true
	}
	available := make([]*store.URLGroup, 0, len(allGroups))
	for _, g := range allGroups {
		if !holds[g.ID] {
			available = append(available, g)
		}
	}

	var lastActive *store.URL
	if user.LastActiveURL != "" {
		lastActive, err = h.store.GetURL(ctx, user.LastActiveURL)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.fail(w, "failed to load last active url", err)
			return
		}
	}

	if errMsg != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	h.render(w, "admin_user_edit", templates.AdminUserEdit{
		Shell:      h.shell(r, user.Username),
		EditUser:   user,
		Groups:     assigned,
		Available:  available,
		LastActive: lastActive,
		Error:      errMsg,
	})
}

// SetAdmin grants or revokes the admin flag. Admins cannot revoke their
// own flag, so there is always a way back into this page.
func (h *Handlers) SetAdmin(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	isAdmin := r.FormValue("is_admin") == "on"

	if self := auth.CurrentUser(r.Context()); self != nil && self.ID == userID && !isAdmin {
		h.renderUserEdit(w, r, "You cannot revoke your own admin access.")
		return
	}

	err := h.store.SetUserAdmin(r.Context(), userID, isAdmin)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to set admin flag", err)
		return
	}

	http.Redirect(w, r, "/admin/users/"+userID, http.StatusSeeOther)
}

// ResetPassword replaces the account password.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	password := r.FormValue("password")
	if password == "" {
		h.renderUserEdit(w, r, "Password is required.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, "failed to hash password", err)
		return
	}

	err = h.store.UpdateUserPassword(r.Context(), userID, string(hash))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, "failed to update password", err)
		return
	}

	http.Redirect(w, r, "/admin/users/"+userID, http.StatusSeeOther)
}

// AssignGroup appends a group to the user's menu.
func (h *Handlers) AssignGroup(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	groupID := r.FormValue("group_id")
	if groupID == "" {
		http.Redirect(w, r, "/admin/users/"+userID, http.StatusSeeOther)
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
	http.Redirect(w, r, "/admin/users/"+userID, http.StatusSeeOther)
}

// RemoveGroup takes a group out of the user's menu.
func (h *Handlers) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	err := h.store.RemoveGroupFromUser(r.Context(), userID, chi.URLParam(r, "gid"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, "failed to remove group", err)
		return
	}

	h.notifier.Broadcast()
	http.Redirect(w, r, "/admin/users/"+userID, http.StatusSeeOther)
}

// MoveGroup shifts a group one position up or down in the user's menu.
func (h *Handlers) MoveGroup(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	groupID := chi.URLParam(r, "gid")
	dir := r.FormValue("dir")

	assigned, err := h.store.ListUserGroups(r.Context(), userID)
	if err != nil {
		h.fail(w, "failed to list user groups", err)
		return
	}

	order := make([]string, len(assigned))
	for i, g := range assigned {
		order[i] = g.ID
	}
	if moved := moveID(order, groupID, dir); moved {
		if err := h.store.SetUserGroupOrder(r.Context(), userID, order); err != nil {
			h.fail(w, "failed to reorder groups", err)
			return
		}
		h.notifier.Broadcast()
	}

	http.Redirect(w, r, "/admin/users/"+userID, http.StatusSeeOther)
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
