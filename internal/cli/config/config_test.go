package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, DefaultSessionMaxAge, cfg.Session.MaxAge)
	assert.Equal(t, DefaultAuthAttempts, cfg.Auth.MaxAttempts)
	assert.Equal(t, DefaultAuthWindow, cfg.Auth.Window)
	assert.Equal(t, "side", cfg.UI.Layout)
	assert.Equal(t, DefaultTabTTL, cfg.UI.TabTTL)

	// The data dir is made absolute and anchors the sqlite file.
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, DefaultDatabaseFile), cfg.Database.DSN)

	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "framedeck.yaml")
	content := `
listen: "0.0.0.0:9000"
data_dir: ` + dir + `
database:
  driver: postgres
  dsn: postgres://fd:fd@localhost/framedeck
auth:
  window: 90s
  lockout: 10m
ui:
  title: Team Deck
  layout: top
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://fd:fd@localhost/framedeck", cfg.Database.DSN)
	assert.Equal(t, 90*time.Second, cfg.Auth.Window)
	assert.Equal(t, 10*time.Minute, cfg.Auth.Lockout)
	assert.Equal(t, "Team Deck", cfg.UI.Title)
	assert.Equal(t, "top", cfg.UI.Layout)
	assert.Equal(t, cfgPath, GetConfigFileUsed())

	// Values the file does not mention keep their defaults.
	assert.Equal(t, DefaultSessionMaxAge, cfg.Session.MaxAge)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	ResetConfig()
	t.Setenv("FRAMEDECK_LISTEN", "127.0.0.1:7777")
	t.Setenv("FRAMEDECK_DATABASE__DSN", ":memory:")
	t.Setenv("FRAMEDECK_UI__LAYOUT", "top")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7777", cfg.Listen)
	assert.Equal(t, ":memory:", cfg.Database.DSN, "in-memory dsn must not be resolved under the data dir")
	assert.Equal(t, "top", cfg.UI.Layout)
}

func TestLoadConfigFlagPrecedence(t *testing.T) {
	ResetConfig()
	t.Setenv("FRAMEDECK_LISTEN", "127.0.0.1:7777")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	flags.String("database-driver", "", "")
	flags.String("database-dsn", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{
		"--listen", "127.0.0.1:8888",
		"--database-driver", "postgres",
		"--database-dsn", "postgres://x",
		"--verbose",
	}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8888", cfg.Listen, "flags beat env vars")
	assert.Equal(t, "postgres", cfg.Database.Driver, "kebab flag maps into the database tree")
	assert.Equal(t, "postgres://x", cfg.Database.DSN)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfigUnsetFlagsAreIgnored(t *testing.T) {
	ResetConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.Listen, "an unset flag must not clobber the default")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Listen:  DefaultListen,
			DataDir: "/tmp/fd",
			Database: DatabaseConfig{
				Driver: "sqlite",
				DSN:    "/tmp/fd/framedeck.db",
			},
			Session: SessionConfig{MaxAge: DefaultSessionMaxAge},
			Auth: AuthConfig{
				MaxAttempts: DefaultAuthAttempts,
				Window:      DefaultAuthWindow,
				Lockout:     DefaultAuthLockout,
			},
			UI: UIConfig{Title: DefaultUITitle, Layout: "side", TabTTL: DefaultTabTTL},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing listen", mutate: func(c *Config) { c.Listen = "" }, errSubstr: "listen"},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, errSubstr: "data_dir"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, errSubstr: "driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }, errSubstr: "dsn"},
		{name: "zero session age", mutate: func(c *Config) { c.Session.MaxAge = 0 }, errSubstr: "max_age"},
		{name: "zero attempts", mutate: func(c *Config) { c.Auth.MaxAttempts = 0 }, errSubstr: "max_attempts"},
		{name: "zero lockout", mutate: func(c *Config) { c.Auth.Lockout = 0 }, errSubstr: "lockout"},
		{name: "bad layout", mutate: func(c *Config) { c.UI.Layout = "floating" }, errSubstr: "layout"},
		{name: "zero tab ttl", mutate: func(c *Config) { c.UI.TabTTL = 0 }, errSubstr: "tab_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			}
		})
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "framedeck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ui:\n  layout: sideways\n"), 0o644))

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layout")
}
