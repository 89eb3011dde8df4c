// Package resources builds and serves the dashboard's frontend assets.
//
// The sources are a single app.js and app.css under src/. They are run
// through esbuild at server start and served from memory; in dev builds
// (-tags dev) they are re-read from disk so a file watcher can rebuild
// them without restarting the server.
package resources

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/evanw/esbuild/pkg/api"
)

// Assets holds the compiled frontend bundle.
type Assets struct {
	JS  string
	CSS string
}

// Build compiles the JS and CSS sources. With minify set the output is
// production-ready; without it the sources pass through mostly as-is,
// which keeps dev stack traces readable.
func Build(minify bool) (*Assets, error) {
	srcFS := sourceFS()

	js, err := transform(srcFS, "src/app.js", api.LoaderJS, minify)
	if err != nil {
		return nil, err
	}
	css, err := transform(srcFS, "src/app.css", api.LoaderCSS, minify)
	if err != nil {
		return nil, err
	}

	return &Assets{JS: js, CSS: css}, nil
}

func transform(srcFS fs.FS, name string, loader api.Loader, minify bool) (string, error) {
	src, err := fs.ReadFile(srcFS, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	opts := api.TransformOptions{
		Loader:     loader,
		Target:     api.ES2020,
		Sourcefile: name,
		LogLevel:   api.LogLevelSilent,
	}
	if minify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}

	result := api.Transform(string(src), opts)
	if len(result.Errors) > 0 {
		var errMsg string
		for _, e := range result.Errors {
			if e.Location != nil {
				errMsg += fmt.Sprintf("%s:%d:%d: %s\n", e.Location.File, e.Location.Line, e.Location.Column, e.Text)
			} else {
				errMsg += e.Text + "\n"
			}
		}
		return "", fmt.Errorf("esbuild errors in %s:\n%s", name, errMsg)
	}

	return string(result.Code), nil
}

// Handler serves the compiled bundle under /static/. The current func
// indirection lets dev builds swap in a fresh bundle after a rebuild
// without re-mounting the handler.
func Handler(current func() *Assets) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := current()
		if a == nil {
			http.Error(w, "assets not built", http.StatusServiceUnavailable)
			return
		}

		var body, contentType string
		switch r.URL.Path {
		case "/static/app.js":
			body, contentType = a.JS, "application/javascript; charset=utf-8"
		case "/static/app.css":
			body, contentType = a.CSS, "text/css; charset=utf-8"
		default:
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", cacheControl)
		fmt.Fprint(w, body)
	})
}

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}
