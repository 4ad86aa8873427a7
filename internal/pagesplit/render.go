package pagesplit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// RenderConfig tunes PDF page rasterization.
type RenderConfig struct {
	Pdftoppm    string // binary name or absolute path; if empty -> "pdftoppm"
	DPI         int    // rasterization DPI, default 150
	ThumbnailPx int    // thumbnail width in pixels, default 240
	MaxPages    int    // 0 = no limit
}

func (c RenderConfig) withDefaults() RenderConfig {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.DPI <= 0 {
		c.DPI = 150
	}
	if c.ThumbnailPx <= 0 {
		c.ThumbnailPx = 240
	}
	return c
}

// Renderer rasterizes PDF pages to PNG bytes via pdftoppm.
type Renderer struct {
	cfg    RenderConfig
	runner Runner
}

func NewRenderer(cfg RenderConfig) *Renderer {
	return &Renderer{cfg: cfg.withDefaults(), runner: shellRunner{}}
}

// RenderPages rasterizes every page of the source at full DPI and returns
// PNG bytes in page order.
func (r *Renderer) RenderPages(ctx context.Context, source []byte) ([][]byte, error) {
	return r.render(ctx, source, []string{"-r", fmt.Sprintf("%d", r.cfg.DPI), "-png"})
}

// RenderThumbnails rasterizes small previews. Failures here are expected to
// be tolerated by the caller: thumbnails are display-only.
func (r *Renderer) RenderThumbnails(ctx context.Context, source []byte) ([][]byte, error) {
	return r.render(ctx, source, []string{"-scale-to-x", fmt.Sprintf("%d", r.cfg.ThumbnailPx), "-scale-to-y", "-1", "-png"})
}

func (r *Renderer) render(ctx context.Context, source []byte, opts []string) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "dd-render-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	src := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(src, source, 0600); err != nil {
		return nil, err
	}

	prefix := filepath.Join(tmpDir, "page")
	args := append(opts, src, prefix)
	if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, errb)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...); pdftoppm
	// zero-pads the index so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	pages := make([][]byte, 0, len(matches))
	for _, img := range matches {
		b, err := os.ReadFile(img)
		if err != nil {
			return nil, err
		}
		pages = append(pages, b)
	}
	return pages, nil
}
