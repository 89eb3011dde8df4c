// Package testutil provides helpers for exercising CLI commands in tests.
package testutil

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/framedeck-labs/framedeck/internal/cli/config"
)

// Setup points the CLI at an isolated data directory and clears any
// previously loaded configuration. Commands run after this against a
// fresh sqlite database under the returned directory.
func Setup(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("FRAMEDECK_DATA_DIR", dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	return dir
}

// Execute runs cmd with args and returns captured stdout and stderr.
func Execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// TableRows splits rendered table output into trimmed non-empty lines,
// dropping the box-drawing border rows.
func TableRows(output string) []string {
	var rows []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "│") {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}
