// Package templates renders the HTML for every page and every SSE fragment.
// Templates are compiled once at startup from the embedded files; fragments
// are rendered to strings so handlers can patch them over datastar.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/framedeck-labs/framedeck/internal/frame"
)

//go:embed *.tmpl
var files embed.FS

var funcs = template.FuncMap{
	// pct turns a 0..1 progress fraction into a whole percentage for CSS.
	"pct": func(f float64) int {
		return int(f * 100)
	},
	// frameSrc picks the mobile target on narrow viewports when one is set.
	"frameSrc": func(target, mobileTarget string, narrow bool) string {
		if narrow && mobileTarget != "" {
			return mobileTarget
		}
		return target
	},
	// item pairs a menu entry with the tab's event URL prefix so the shared
	// partial can build action URLs.
	"item": func(base string, u frame.URLView) menuItem {
		return menuItem{Base: base, U: u}
	},
}

var tmpl = template.Must(template.New("framedeck").Funcs(funcs).ParseFS(files, "*.tmpl"))

// Page writes a full page response.
func Page(w io.Writer, name string, data any) error {
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

// Fragment renders one named template to a string for SSE element patches.
func Fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
