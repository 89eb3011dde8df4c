// Package frame tracks the lifecycle of embedded destinations inside a
// dashboard tab: which frames are instantiated, which one is shown, and the
// gestures that load, reload, and unload them.
//
// A Manager is created per browser tab with the group list visible to that
// user and disposed when the tab session ends. Display status is always
// derived from two independent pieces of state (the active URL id and the
// loaded set); the four statuses are never stored, so they cannot drift.
package frame

import "time"

// URL is one embeddable destination as the manager sees it. It is a plain
// value copied from the data layer; the manager never writes it back.
type URL struct {
	ID           string
	Title        string
	Target       string
	MobileTarget string
	Icon         string
	IdleTimeout  time.Duration // zero means the frame never idles out
	OpenExternal bool          // open in a new browser tab, never framed
}

// Group is an ordered collection of URLs curated by an administrator.
type Group struct {
	ID   string
	Name string
	URLs []URL
}

// Status is the display status of one URL, derived from whether it is the
// active selection and whether its frame is currently instantiated.
type Status string

const (
	StatusActiveLoaded     Status = "active-loaded"
	StatusActiveUnloaded   Status = "active-unloaded"
	StatusInactiveLoaded   Status = "inactive-loaded"
	StatusInactiveUnloaded Status = "inactive-unloaded"
)

// DeriveStatus computes the display status for urlID given the single active
// URL id and the loaded set. It is pure and total: any combination of
// inputs, including unknown or empty ids, yields exactly one status.
func DeriveStatus(urlID, activeURLID string, loaded map[string]bool) Status {
	active := urlID != "" && urlID == activeURLID
	switch {
	case active && loaded[urlID]:
		return StatusActiveLoaded
	case active:
		return StatusActiveUnloaded
	case loaded[urlID]:
		return StatusInactiveLoaded
	default:
		return StatusInactiveUnloaded
	}
}

// Action tells the rendering layer what a click resolved to.
type Action int

const (
	// ActionNone means the click referenced a stale or unknown URL and was
	// ignored.
	ActionNone Action = iota
	// ActionSelect means the URL became the active selection; the renderer
	// should make sure its frame exists and report it loaded.
	ActionSelect
	// ActionReload means the already-active URL was clicked again; the
	// renderer should force a fresh load of its frame.
	ActionReload
	// ActionOpenExternal means the URL is flagged to open outside the
	// dashboard; manager state is untouched.
	ActionOpenExternal
	// ActionSuppressed means the click arrived inside the cooldown window
	// after a long-press unload and was swallowed.
	ActionSuppressed
)

// ClickResult is returned by Click so the renderer can act on the outcome.
// URL is set for every action that refers to a known URL.
type ClickResult struct {
	Action Action
	URL    *URL
}
