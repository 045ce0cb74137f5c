package report

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func standaloneGenerator(t *testing.T) *Generator {
	t.Helper()
	staticDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "img", "logo.png"), pngMagic, 0o644))
	return NewGenerator(&fakeSource{}, nil, "UTC", staticDir, zerolog.Nop())
}

func TestRenderStandaloneInlinesLocalImage(t *testing.T) {
	g := standaloneGenerator(t)

	out, err := g.RenderStandalone(context.Background(),
		windowRequest(`<img class="logo" src="/static/img/logo.png" alt="logo">`))
	require.NoError(t, err)

	encoded := base64.StdEncoding.EncodeToString(pngMagic)
	assert.Contains(t, out, `src="data:image/png;base64,`+encoded+`"`)
	assert.Contains(t, out, `class="logo"`)
	assert.Contains(t, out, `alt="logo"`)
	assert.NotContains(t, out, `src="/static/img/logo.png"`)
}

func TestRenderStandaloneInlinesRemoteImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif; charset=binary")
		_, _ = w.Write([]byte("GIF89a"))
	}))
	defer srv.Close()

	g := standaloneGenerator(t)
	out, err := g.RenderStandalone(context.Background(),
		windowRequest(`<img src="`+srv.URL+`/pixel.gif">`))
	require.NoError(t, err)

	encoded := base64.StdEncoding.EncodeToString([]byte("GIF89a"))
	assert.Contains(t, out, `src="data:image/gif;base64,`+encoded+`"`)
}

func TestRenderStandaloneKeepsUnfetchableImage(t *testing.T) {
	g := standaloneGenerator(t)

	out, err := g.RenderStandalone(context.Background(),
		windowRequest(`<img src="/static/img/missing.png">`))
	require.NoError(t, err)
	assert.Contains(t, out, `src="/static/img/missing.png"`)
}

func TestRenderStandaloneLeavesDataURIs(t *testing.T) {
	g := standaloneGenerator(t)

	tag := `<img src="data:image/png;base64,AAAA">`
	out, err := g.RenderStandalone(context.Background(), windowRequest(tag))
	require.NoError(t, err)
	assert.Contains(t, out, tag)
}

func TestReadLocalImageRefusesEscape(t *testing.T) {
	g := standaloneGenerator(t)

	_, _, err := g.readLocalImage("/../etc/passwd")
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestMimeTypeFromPath(t *testing.T) {
	assert.Equal(t, "image/jpeg", mimeTypeFromPath("/a/b/photo.JPG"))
	assert.Equal(t, "image/svg+xml", mimeTypeFromPath("logo.svg?v=2"))
	assert.Equal(t, "image/png", mimeTypeFromPath("no-extension"))
}
