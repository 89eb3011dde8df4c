package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framedeck-labs/framedeck/internal/cli/testutil"
)

func TestDBStatusBeforeMigrate(t *testing.T) {
	testutil.Setup(t)

	out, _, err := testutil.Execute(t, NewDBCommand(), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Database sqlite is at schema version 0")
}

func TestDBMigrate(t *testing.T) {
	testutil.Setup(t)

	out, _, err := testutil.Execute(t, NewDBCommand(), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database sqlite is at schema version 2")

	status, _, err := testutil.Execute(t, NewDBCommand(), "status")
	require.NoError(t, err)
	assert.Equal(t, out, status)
}
