// Package config provides configuration management for the Framedeck CLI.
//
// Configuration is merged from four layers, lowest to highest precedence:
// built-in defaults, a framedeck.yaml file, FRAMEDECK_ environment
// variables, and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Listen  string `koanf:"listen"`
	BaseURL string `koanf:"base_url"`
	DataDir string `koanf:"data_dir"`
	Verbose bool   `koanf:"verbose"`

	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Auth     AuthConfig     `koanf:"auth"`
	UI       UIConfig       `koanf:"ui"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `koanf:"driver"`
	// DSN is a file path for sqlite (resolved under the data dir when
	// relative) or a connection string for postgres. Empty means the
	// default sqlite file under the data dir.
	DSN string `koanf:"dsn"`
}

// SessionConfig configures the login session cookies.
type SessionConfig struct {
	// Secret signs session cookies. When empty, a random secret is
	// generated and persisted under the data dir on first start.
	Secret string `koanf:"secret"`
	// MaxAge is the session lifetime in seconds.
	MaxAge int `koanf:"max_age"`
}

// AuthConfig tunes the login rate limiter.
type AuthConfig struct {
	// MaxAttempts failed logins per username+address within Window lock
	// the pair out for Lockout.
	MaxAttempts int           `koanf:"max_attempts"`
	Window      time.Duration `koanf:"window"`
	Lockout     time.Duration `koanf:"lockout"`
}

// UIConfig holds dashboard presentation options.
type UIConfig struct {
	Title string `koanf:"title"`
	// Layout is "side" or "top".
	Layout string `koanf:"layout"`
	// TabTTL is how long an idle dashboard tab keeps its server-side
	// state before it is reaped.
	TabTTL time.Duration `koanf:"tab_ttl"`
}

// Default configuration values.
const (
	DefaultListen         = "127.0.0.1:8484"
	DefaultDataDir        = "data"
	DefaultDatabaseDriver = "sqlite"
	DefaultDatabaseFile   = "framedeck.db"
	DefaultSessionMaxAge  = 86400 * 30
	DefaultAuthAttempts   = 5
	DefaultAuthWindow     = 5 * time.Minute
	DefaultAuthLockout    = 15 * time.Minute
	DefaultUITitle        = "Framedeck"
	DefaultUILayout       = "side"
	DefaultTabTTL         = time.Hour
)
