//go:build dev

package resources

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// Dev reports whether this binary was built with the dev tag.
const Dev = true

// Dev assets change on every edit, so the browser must not cache them.
const cacheControl = "no-cache, no-store, must-revalidate"

// sourceFS serves the asset sources straight from the source tree so
// edits show up on the next rebuild. The path is derived from this file
// via runtime.Caller, regardless of where the binary is run from.
func sourceFS() fs.FS {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return os.DirFS(".")
	}
	return os.DirFS(filepath.Dir(filename))
}

// SourceDir returns the on-disk directory holding the asset sources,
// for the file watcher. Empty when the location cannot be determined.
func SourceDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return filepath.Join(filepath.Dir(filename), "src")
}
