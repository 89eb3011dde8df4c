package templates

import (
	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
)

// Shell carries what every full page needs: the title bar, the signed-in
// user (nil on the login page), and whether dev-reload wiring is active.
// Layout is set on the dashboard page only; it makes the topbar show the
// menu-placement toggle.
type Shell struct {
	Title   string
	AppName string
	User    *store.User
	Dev     bool
	Layout  string
}

// Login is the view model for the login page.
type Login struct {
	Shell
	Username   string
	Error      string
	RetryAfter int // seconds until the next attempt is allowed, 0 when not limited
}

// Menu is the side- or top-menu fragment, re-rendered on every manager ping.
type Menu struct {
	Base   string // event URL prefix for this tab, /app/t/<token>
	Layout string // "side" or "top"
	View   frame.View
}

// menuItem is what the menu_url partial receives for each entry.
type menuItem struct {
	Base string
	U    frame.URLView
}

// Frames is the frame-container fragment. Every loaded URL keeps a mounted
// iframe; only the active one is visible.
type Frames struct {
	Base   string
	Narrow bool
	Frames []frame.FrameView
}

// App is the dashboard page: shell, menu, and frames rendered server-side,
// then kept fresh over the tab's SSE stream. The dash layout class comes
// from Shell.Layout.
type App struct {
	Shell
	Token  string
	Menu   Menu
	Frames Frames
}

// GroupRow is one URL group in the admin list with its usage counts.
type GroupRow struct {
	Group *store.URLGroup
	URLs  int
	Users int
}

// AdminGroups is the group list page.
type AdminGroups struct {
	Shell
	Groups []GroupRow
	Error  string
}

// AdminGroupEdit is the single-group management page: members in order,
// the pool of unassigned URLs, and the users holding this group.
type AdminGroupEdit struct {
	Shell
	Group      *store.URLGroup
	Members    []*store.URL
	Available  []*store.URL
	Assigned   []*store.User
	Unassigned []*store.User
	Error      string
}

// AdminURLEdit is the single-URL management page.
type AdminURLEdit struct {
	Shell
	EditURL  *store.URL
	InGroups []*store.URLGroup
	Error    string
}

// AdminUsers is the user list page.
type AdminUsers struct {
	Shell
	Users []*store.User
	Error string
}

// AdminUserEdit is the single-user management page with group assignment.
type AdminUserEdit struct {
	Shell
	EditUser   *store.User
	Groups     []*store.URLGroup // assigned, in order
	Available  []*store.URLGroup
	LastActive *store.URL // nil when unset or stale
	Error      string
}
