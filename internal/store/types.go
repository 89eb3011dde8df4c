package store

import "time"

// User is a dashboard account. LastActiveURL remembers the URL the user
// had selected when they were last here; it is empty until the first
// selection is recorded.
type User struct {
	ID            string
	Username      string
	PasswordHash  string
	IsAdmin       bool
	LastActiveURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// URLGroup is a named, ordered collection of URLs curated by admins and
// assigned to users.
type URLGroup struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// URL is one embeddable destination. Target is what desktop frames load;
// MobileTarget, when set, is used on narrow viewports instead. An
// IdleTimeoutSeconds of zero means the frame never idles out.
// OpenExternal URLs get a new browser tab instead of a frame.
type URL struct {
	ID                 string
	Title              string
	Target             string
	MobileTarget       string
	Icon               string
	IdleTimeoutSeconds int
	OpenExternal       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GroupWithURLs is a group joined with its ordered members, the shape the
// dashboard consumes.
type GroupWithURLs struct {
	URLGroup
	URLs []*URL
}
