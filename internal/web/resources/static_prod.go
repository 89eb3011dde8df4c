//go:build !dev

package resources

import (
	"embed"
	"io/fs"
)

// Dev reports whether this binary was built with the dev tag.
const Dev = false

// The bundle is built once at server start, so clients may cache it for
// a while. No immutable flag since the URL does not change per release.
const cacheControl = "public, max-age=3600"

//go:embed src
var srcFS embed.FS

func sourceFS() fs.FS {
	return srcFS
}

// SourceDir is only meaningful in dev builds where sources live on disk.
func SourceDir() string {
	return ""
}
