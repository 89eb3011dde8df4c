// Package commands tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/framedeck-labs/framedeck/internal/cli/testutil"
)

func findSubcommand(t *testing.T, parent *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, sub := range parent.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	t.Fatalf("subcommand %q not found on %q", name, parent.Name())
	return nil
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("open"), "flag %q should exist", "open")
}

func TestNewUserCommand(t *testing.T) {
	cmd := NewUserCommand()

	assert.Equal(t, "user", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	add := findSubcommand(t, cmd, "add")
	for _, flag := range []string{"admin", "password"} {
		assert.NotNil(t, add.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	findSubcommand(t, cmd, "list")

	passwd := findSubcommand(t, cmd, "passwd")
	assert.NotNil(t, passwd.Flags().Lookup("password"), "flag %q should exist", "password")

	del := findSubcommand(t, cmd, "del")
	assert.Equal(t, []string{"rm"}, del.Aliases, "del command should have 'rm' alias")
}

func TestNewGroupCommand(t *testing.T) {
	cmd := NewGroupCommand()

	assert.Equal(t, "group", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	findSubcommand(t, cmd, "list")

	export := findSubcommand(t, cmd, "export")
	assert.NotEmpty(t, export.Example, "Example should not be empty")
	assert.NotNil(t, export.Flags().Lookup("out"), "flag %q should exist", "out")

	imp := findSubcommand(t, cmd, "import")
	assert.Equal(t, "import <file>", imp.Use)
	assert.NotEmpty(t, imp.Long, "Long should not be empty")
}

func TestNewDBCommand(t *testing.T) {
	cmd := NewDBCommand()

	assert.Equal(t, "db", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	findSubcommand(t, cmd, "migrate")
	findSubcommand(t, cmd, "status")
}

func TestNewVersionCommand(t *testing.T) {
	out, _, err := testutil.Execute(t, NewVersionCommand("9.9.9"))

	assert.NoError(t, err)
	assert.Contains(t, out, "Framedeck v9.9.9")
}
