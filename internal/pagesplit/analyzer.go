// Package pagesplit analyzes multi-page scans: which contiguous page ranges
// form which document, which pages are blank, and how to realize the split
// output files.
package pagesplit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
	"github.com/weiliang-ho/dealerdocs/internal/metrics"
	"github.com/weiliang-ho/dealerdocs/internal/ocr"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
)

// errStrategySkipped marks a strategy that declined to run (as opposed to
// one that ran and failed).
var errStrategySkipped = errors.New("strategy skipped")

// PageRenderer rasterizes PDF pages; stubbed in tests.
type PageRenderer interface {
	RenderPages(ctx context.Context, source []byte) ([][]byte, error)
	RenderThumbnails(ctx context.Context, source []byte) ([][]byte, error)
}

// AnalyzerConfig tunes strategy selection.
type AnalyzerConfig struct {
	// MaxUploadBytes bounds the whole-document strategy; larger sources
	// skip straight to the page-by-page fallback.
	MaxUploadBytes int64
}

// Analyzer classifies a single multi-page source into per-page types and a
// page grouping, trying strategies in order and stopping at the first
// success.
type Analyzer struct {
	whole    oracle.WholeDocumentClassifier // optional
	batch    oracle.BatchClassifier
	engine   ocr.Engine
	renderer PageRenderer
	cfg      AnalyzerConfig
	metrics  *metrics.Pipeline
	logger   *slog.Logger
}

func NewAnalyzer(
	whole oracle.WholeDocumentClassifier,
	batch oracle.BatchClassifier,
	engine ocr.Engine,
	renderer PageRenderer,
	cfg AnalyzerConfig,
	m *metrics.Pipeline,
	logger *slog.Logger,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 18 * 1024 * 1024
	}
	return &Analyzer{
		whole:    whole,
		batch:    batch,
		engine:   engine,
		renderer: renderer,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Analyze classifies every page of the source and proposes page groupings.
// External failures degrade to a single all-pages `other` group; an error is
// returned only when the source itself is unusable.
func (a *Analyzer) Analyze(ctx context.Context, source []byte) (entity.AnalysisResult, error) {
	if len(source) == 0 {
		return entity.AnalysisResult{}, fmt.Errorf("empty source document")
	}
	pageCount, err := PageCount(source)
	if err != nil {
		return entity.AnalysisResult{}, fmt.Errorf("read source: %w", err)
	}
	if pageCount == 0 {
		return entity.AnalysisResult{}, fmt.Errorf("source has no pages")
	}

	start := time.Now()
	bc, pageTexts, strategy := a.classify(ctx, source, pageCount)

	thumbnails := a.thumbnails(ctx, source, pageCount)
	result := a.assemble(bc, pageTexts, thumbnails, pageCount)
	result.Strategy = strategy

	a.logger.Info("analyze.done",
		"strategy", strategy,
		"pages", pageCount,
		"groups", len(result.Groups),
		"customer", result.CustomerName,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// classify runs the strategy chain. It always returns a usable batch
// classification: on total failure the fallback spans all pages as `other`.
func (a *Analyzer) classify(ctx context.Context, source []byte, pageCount int) (oracle.BatchClassification, []string, string) {
	type strategy struct {
		name    string
		attempt func(context.Context) (oracle.BatchClassification, []string, error)
	}

	strategies := []strategy{
		{name: "whole_document", attempt: func(ctx context.Context) (oracle.BatchClassification, []string, error) {
			return a.attemptWholeDocument(ctx, source)
		}},
		{name: "combined_text", attempt: func(ctx context.Context) (oracle.BatchClassification, []string, error) {
			return a.attemptCombinedText(ctx, source)
		}},
	}

	for _, st := range strategies {
		bc, texts, err := st.attempt(ctx)
		if err == nil {
			a.metrics.ObserveExternalCall("analyze."+st.name, "ok")
			return bc, texts, st.name
		}
		if errors.Is(err, errStrategySkipped) {
			a.logger.Debug("analyze.strategy_skipped", "strategy", st.name, "reason", err)
			continue
		}
		a.metrics.ObserveExternalCall("analyze."+st.name, "error")
		a.logger.Warn("analyze.strategy_failed", "strategy", st.name, "error", err)
	}

	// total failure: one group spanning every page, flagged for review
	a.logger.Error("analyze.all_strategies_failed", "pages", pageCount)
	pages := make([]int, pageCount)
	for i := range pages {
		pages[i] = i + 1
	}
	fallback := oracle.BatchClassification{
		Groups: []oracle.PageGroup{{DocumentType: string(constants.Other), Confidence: 0, Pages: pages}},
	}
	texts, _ := ExtractPageTexts(source)
	return fallback, texts, "fallback"
}

func (a *Analyzer) attemptWholeDocument(ctx context.Context, source []byte) (oracle.BatchClassification, []string, error) {
	if a.whole == nil {
		return oracle.BatchClassification{}, nil, fmt.Errorf("%w: no whole-document oracle configured", errStrategySkipped)
	}
	if int64(len(source)) > a.cfg.MaxUploadBytes {
		return oracle.BatchClassification{}, nil, fmt.Errorf("%w: source %d bytes exceeds %d limit",
			errStrategySkipped, len(source), a.cfg.MaxUploadBytes)
	}

	bc, err := a.whole.ClassifyWholeDocument(ctx, source, "application/pdf")
	if err != nil {
		return oracle.BatchClassification{}, nil, err
	}
	texts := bc.PageTexts
	if len(texts) == 0 {
		// oracle reasoned over the pages but kept the text to itself
		texts, _ = ExtractPageTexts(source)
	}
	return bc, texts, nil
}

// attemptCombinedText extracts text per page (text layer first, OCR for
// pages without one), then issues one batch-classification call over the
// combined texts. Per-page classification calls would be wasteful and lose
// cross-page context.
func (a *Analyzer) attemptCombinedText(ctx context.Context, source []byte) (oracle.BatchClassification, []string, error) {
	texts, err := ExtractPageTexts(source)
	if err != nil {
		return oracle.BatchClassification{}, nil, fmt.Errorf("extract page texts: %w", err)
	}

	if missing := pagesWithoutText(texts); len(missing) > 0 && a.engine != nil && a.renderer != nil {
		images, err := a.renderer.RenderPages(ctx, source)
		if err != nil {
			a.logger.Warn("analyze.render_failed", "error", err)
		} else {
			for _, pageIdx := range missing {
				if pageIdx >= len(images) {
					break
				}
				text, err := a.engine.ExtractText(ctx, images[pageIdx], "image/png")
				if err != nil {
					a.logger.Warn("analyze.page_ocr_failed", "page", pageIdx+1, "error", err)
					continue
				}
				texts[pageIdx] = text
			}
		}
	}

	bc, err := a.batch.ClassifyBatchText(ctx, texts)
	if err != nil {
		return oracle.BatchClassification{}, nil, err
	}
	return bc, texts, nil
}

// thumbnails renders page previews best-effort. A failure leaves every
// thumbnail empty and never affects classification.
func (a *Analyzer) thumbnails(ctx context.Context, source []byte, pageCount int) [][]byte {
	out := make([][]byte, pageCount)
	if a.renderer == nil {
		return out
	}
	thumbs, err := a.renderer.RenderThumbnails(ctx, source)
	if err != nil {
		a.logger.Warn("analyze.thumbnails_failed", "error", err)
		return out
	}
	for i := 0; i < pageCount && i < len(thumbs); i++ {
		out[i] = thumbs[i]
	}
	return out
}

// assemble converts the oracle's answer into the analysis result:
// canonicalized per-page classifications and a grouping treated as a
// partition (a page referenced by two groups stays with the first).
func (a *Analyzer) assemble(bc oracle.BatchClassification, pageTexts []string, thumbnails [][]byte, pageCount int) entity.AnalysisResult {
	pages := make([]entity.PageClassification, pageCount)
	for i := range pages {
		pages[i] = entity.PageClassification{
			PageNumber:   i + 1,
			DocumentType: constants.Other,
			Confidence:   0,
		}
		if i < len(pageTexts) {
			pages[i].RawText = pageTexts[i]
		}
		if i < len(thumbnails) {
			pages[i].Thumbnail = thumbnails[i]
		}
	}
	for _, pt := range bc.PageTypes {
		if pt.PageNumber < 1 || pt.PageNumber > pageCount {
			continue
		}
		docType, _ := constants.Canonicalize(pt.DocumentType)
		pages[pt.PageNumber-1].DocumentType = docType
		pages[pt.PageNumber-1].Confidence = clampConfidence(pt.Confidence)
	}

	seen := make(map[int]struct{}, pageCount)
	groups := make([]entity.SplitDocument, 0, len(bc.Groups))
	for _, g := range bc.Groups {
		docType, _ := constants.Canonicalize(g.DocumentType)
		kept := make([]int, 0, len(g.Pages))
		for _, p := range g.Pages {
			if p < 1 || p > pageCount {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		groups = append(groups, entity.SplitDocument{
			DocumentType: docType,
			Confidence:   clampConfidence(g.Confidence),
			Pages:        kept,
		})
	}

	return entity.AnalysisResult{
		Pages:        pages,
		Groups:       groups,
		CustomerName: bc.CustomerName,
	}
}

func pagesWithoutText(texts []string) []int {
	var missing []int
	for i, t := range texts {
		if t == "" {
			missing = append(missing, i)
		}
	}
	return missing
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
