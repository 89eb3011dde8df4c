package resources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducesAssets(t *testing.T) {
	plain, err := Build(false)
	require.NoError(t, err)
	assert.NotEmpty(t, plain.JS)
	assert.NotEmpty(t, plain.CSS)

	minified, err := Build(true)
	require.NoError(t, err)
	assert.NotEmpty(t, minified.JS)
	assert.NotEmpty(t, minified.CSS)

	assert.Less(t, len(minified.JS), len(plain.JS), "minified JS should be smaller")
	assert.Less(t, len(minified.CSS), len(plain.CSS), "minified CSS should be smaller")
}

func TestHandlerServesBundle(t *testing.T) {
	assets := &Assets{JS: "console.log('hi');", CSS: "body { margin: 0; }"}
	h := Handler(func() *Assets { return assets })

	tests := []struct {
		path       string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{"/static/app.js", http.StatusOK, "application/javascript; charset=utf-8", assets.JS},
		{"/static/app.css", http.StatusOK, "text/css; charset=utf-8", assets.CSS},
		{"/static/nope.txt", http.StatusNotFound, "", ""},
		{"/static/", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
				assert.Equal(t, tt.wantBody, rec.Body.String())
				assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestHandlerBeforeBuild(t *testing.T) {
	h := Handler(func() *Assets { return nil })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStaticPath(t *testing.T) {
	assert.Equal(t, "/static/app.css", StaticPath("app.css"))
}
