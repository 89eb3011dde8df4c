// Package commands implements the Framedeck subcommands.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/framedeck-labs/framedeck/internal/cli/config"
	"github.com/framedeck-labs/framedeck/internal/store"
)

// getConfig returns the configuration loaded by the root command, or a
// default-loaded one when a command runs standalone (as in tests).
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// openStore connects to the configured database and brings the schema up
// to date.
func openStore(ctx context.Context) (*store.SQLStore, *config.Config, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}

	st, err := connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return st, cfg, nil
}

// connect opens the configured database without touching the schema.
// The data dir is created first so a fresh sqlite file has a home.
func connect(cfg *config.Config) (*store.SQLStore, error) {
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN != ":memory:" {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}
