// Package testutil provides shared helpers for tests.
package testutil

import (
	"log/slog"
	"testing"
)

// Logger returns a slog.Logger that routes through t.Log, so log output
// shows up attached to the failing test (or under -v) instead of on
// stderr.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	return LoggerAt(t, slog.LevelDebug)
}

// LoggerAt is Logger with an explicit minimum level, for tests that want
// to silence debug chatter from busy components.
func LoggerAt(t testing.TB, level slog.Level) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: level,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
