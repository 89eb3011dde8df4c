package config

import "fmt"

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for postgres")
	}

	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session.max_age must be positive")
	}

	if c.Auth.MaxAttempts <= 0 {
		return fmt.Errorf("auth.max_attempts must be positive")
	}
	if c.Auth.Window <= 0 || c.Auth.Lockout <= 0 {
		return fmt.Errorf("auth.window and auth.lockout must be positive")
	}

	switch c.UI.Layout {
	case "side", "top":
	default:
		return fmt.Errorf("unsupported ui.layout %q (want side or top)", c.UI.Layout)
	}
	if c.UI.TabTTL <= 0 {
		return fmt.Errorf("ui.tab_ttl must be positive")
	}

	return nil
}
