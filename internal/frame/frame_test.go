package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	loaded := map[string]bool{"u1": true}

	tests := []struct {
		name   string
		urlID  string
		active string
		want   Status
	}{
		{name: "active and loaded", urlID: "u1", active: "u1", want: StatusActiveLoaded},
		{name: "active but unloaded", urlID: "u2", active: "u2", want: StatusActiveUnloaded},
		{name: "loaded in background", urlID: "u1", active: "u2", want: StatusInactiveLoaded},
		{name: "neither", urlID: "u3", active: "u1", want: StatusInactiveUnloaded},
		{name: "nothing active", urlID: "u1", active: "", want: StatusInactiveLoaded},
		{name: "empty id", urlID: "", active: "", want: StatusInactiveUnloaded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DeriveStatus(tt.urlID, tt.active, loaded))
		})
	}
}

func TestStatusIsExactlyOneQuadrant(t *testing.T) {
	t.Parallel()

	// Every combination of (active, loaded) maps to exactly one of the four
	// statuses, never more, never none.
	seen := map[Status]bool{}
	for _, active := range []string{"u1", "other"} {
		for _, loaded := range []map[string]bool{{}, {"u1": true}} {
			seen[DeriveStatus("u1", active, loaded)] = true
		}
	}
	assert.Len(t, seen, 4)
}
