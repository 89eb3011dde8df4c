// Package auth provides sign-in, sign-out, and the session middleware
// guarding the dashboard and admin pages.
package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/templates"
)

// dummyHash keeps password verification near constant time when the
// username does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Handlers provides HTTP handlers for signing in and out.
type Handlers struct {
	store        store.Store
	sessionStore sessions.Store
	limiter      *Limiter
	logger       *slog.Logger
	appName      string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st store.Store, sessionStore sessions.Store, limiter *Limiter, logger *slog.Logger, appName string) *Handlers {
	return &Handlers{
		store:        st,
		sessionStore: sessionStore,
		limiter:      limiter,
		logger:       logger,
		appName:      appName,
	}
}

// LoginPage renders the sign-in form. Signed-in users are sent straight
// to the dashboard.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if sessionUser(r, h.sessionStore, h.store) != nil {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, templates.Login{Shell: h.shell()})
}

// Login verifies the submitted credentials and starts a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := store.NormalizeUsername(r.FormValue("username"))
	password := r.FormValue("password")
	addr := remoteAddr(r)

	if ok, remaining := h.limiter.Allow(username, addr); !ok {
		retry := int((remaining + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		w.WriteHeader(http.StatusTooManyRequests)
		h.renderLogin(w, templates.Login{
			Shell:      h.shell(),
			Username:   username,
			Error:      "Too many failed attempts.",
			RetryAfter: retry,
		})
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), username)
	hash := dummyHash
	if err == nil {
		hash = user.PasswordHash
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("sign-in lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil || user == nil {
		h.limiter.Fail(username, addr)
		h.logger.Warn("failed sign-in", "username", username, "addr", addr)
		w.WriteHeader(http.StatusUnauthorized)
		h.renderLogin(w, templates.Login{
			Shell:    h.shell(),
			Username: username,
			Error:    "Invalid username or password.",
		})
		return
	}

	h.limiter.Reset(username, addr)

	session, _ := h.sessionStore.Get(r, SessionName)
	session.Values["userID"] = user.ID
	if err := session.Save(r, w); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user signed in", "username", user.Username)
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

// Logout ends the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionStore.Get(r, SessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.logger.Error("failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handlers) shell() templates.Shell {
	return templates.Shell{Title: "Sign in", AppName: h.appName}
}

func (h *Handlers) renderLogin(w http.ResponseWriter, data templates.Login) {
	if err := templates.Page(w, "login", data); err != nil {
		h.logger.Error("failed to render login page", "error", err)
	}
}

// remoteAddr strips the port so one client is one limiter entry no
// matter which ephemeral port the attempt came from.
func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
