package pagesplit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// SplitterConfig tunes blank-page filtering during splits.
type SplitterConfig struct {
	BlankThreshold int
}

// Splitter realizes page groups into standalone PDF documents. The source is
// never mutated; every output is a fresh page collection.
type Splitter struct {
	cfg    SplitterConfig
	conf   *model.Configuration
	logger *slog.Logger
}

func NewSplitter(cfg SplitterConfig, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BlankThreshold <= 0 {
		cfg.BlankThreshold = DefaultBlankThreshold
	}
	return &Splitter{cfg: cfg, conf: model.NewDefaultConfiguration(), logger: logger}
}

// Split copies each group's pages out of the source into a new PDF,
// preserving original page order within the group. When removeBlank is set,
// blank pages are filtered first and groups emptied by the filter are
// dropped entirely. Returns an error only for contract violations (empty or
// unreadable source).
func (s *Splitter) Split(ctx context.Context, source []byte, groups []entity.SplitDocument, pageTexts []string, removeBlank bool) ([]entity.SplitDocument, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("empty source document")
	}
	pageCount, err := PageCount(source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	candidates := clampGroups(groups, pageCount)
	if removeBlank {
		candidates = FilterBlankPages(candidates, pageTexts, s.cfg.BlankThreshold)
	}

	out := make([]entity.SplitDocument, 0, len(candidates))
	for _, g := range candidates {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		blob, err := collectPages(source, g.Pages, s.conf)
		if err != nil {
			return nil, fmt.Errorf("split %s pages %v: %w", g.DocumentType, g.Pages, err)
		}
		g.Output = blob
		out = append(out, g)
		s.logger.Debug("split.group_done",
			"document_type", g.DocumentType, "pages", g.Pages, "bytes", len(blob))
	}

	s.logger.Info("split.done",
		"groups_in", len(groups), "groups_out", len(out), "remove_blank", removeBlank)
	return out, nil
}

// clampGroups drops page references outside the source's page range and
// discards groups left without pages.
func clampGroups(groups []entity.SplitDocument, pageCount int) []entity.SplitDocument {
	out := make([]entity.SplitDocument, 0, len(groups))
	for _, g := range groups {
		kept := make([]int, 0, len(g.Pages))
		for _, p := range g.Pages {
			if p >= 1 && p <= pageCount {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			continue
		}
		clamped := g
		clamped.Pages = kept
		out = append(out, clamped)
	}
	return out
}

func collectPages(source []byte, pages []int, conf *model.Configuration) ([]byte, error) {
	selectors := make([]string, len(pages))
	for i, p := range pages {
		selectors[i] = strconv.Itoa(p)
	}
	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(source), &buf, selectors, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
