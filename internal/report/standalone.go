package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var imgTagPattern = regexp.MustCompile(`(?i)<img([^>]+)src=["']([^"']+)["']([^>]*)>`)

// maxInlineImageBytes caps how much of a remote image is read when
// inlining, keeping a hostile URL from ballooning the document.
const maxInlineImageBytes = 20 << 20

// RenderStandalone renders a report and then inlines every <img>
// source as a base64 data URI, producing a single file that opens
// anywhere. Inlining is best effort: images that cannot be fetched
// keep their original src.
func (g *Generator) RenderStandalone(ctx context.Context, req RenderRequest) (string, error) {
	html, err := g.Render(ctx, req)
	if err != nil {
		return "", err
	}

	return imgTagPattern.ReplaceAllStringFunc(html, func(tag string) string {
		m := imgTagPattern.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		before, src, after := m[1], m[2], m[3]

		if strings.HasPrefix(src, "data:") {
			return tag
		}

		data, mime, err := g.loadImage(ctx, src)
		if err != nil {
			g.logger.Warn().Err(err).Str("src", src).Msg("skipping image inline")
			return tag
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		return `<img` + before + `src="data:` + mime + `;base64,` + encoded + `"` + after + `>`
	}), nil
}

func (g *Generator) loadImage(ctx context.Context, src string) ([]byte, string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return g.fetchRemoteImage(ctx, src)
	}
	if strings.HasPrefix(src, "/") {
		return g.readLocalImage(src)
	}
	return nil, "", os.ErrNotExist
}

func (g *Generator) fetchRemoteImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInlineImageBytes))
	if err != nil {
		return nil, "", err
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = mimeTypeFromPath(url)
	}
	return data, mime, nil
}

func (g *Generator) readLocalImage(src string) ([]byte, string, error) {
	// The static root is served under /static/, so that URL prefix is
	// not part of the on-disk path. Resolve inside the root only; a
	// path that escapes it is refused.
	rel := strings.TrimPrefix(src, "/")
	rel = strings.TrimPrefix(rel, "static/")
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, "", os.ErrPermission
	}
	data, err := os.ReadFile(filepath.Join(g.staticDir, clean))
	if err != nil {
		return nil, "", err
	}
	return data, mimeTypeFromPath(src), nil
}

func mimeTypeFromPath(p string) string {
	switch strings.ToLower(filepath.Ext(strings.Split(p, "?")[0])) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
