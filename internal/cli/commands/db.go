package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDBCommand creates the db command and its subcommands.
func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the database",
	}

	cmd.AddCommand(newDBMigrateCommand())
	cmd.AddCommand(newDBStatusCommand())

	return cmd
}

func newDBMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			version, err := st.MigrationVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d\n", cfg.Database.Driver, version)
			return nil
		},
	}
}

func newDBStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version without migrating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig()
			if err != nil {
				return err
			}
			st, err := connect(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			version, err := st.MigrationVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d\n", cfg.Database.Driver, version)
			return nil
		},
	}
}
