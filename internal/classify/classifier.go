// Package classify implements the per-file classification pipeline and the
// batch scheduler that drives it. The single-item classifier never returns an
// error: every failure path degrades to an `other` result with confidence 0
// and a summary describing what happened, so callers can always proceed.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/adapter"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
	"github.com/weiliang-ho/dealerdocs/internal/metrics"
	"github.com/weiliang-ho/dealerdocs/internal/ocr"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
)

// SpreadsheetMode selects how spreadsheet files are classified.
type SpreadsheetMode string

const (
	// SpreadsheetHeuristic classifies by filename keywords only. Fast, no
	// external call, lower confidence.
	SpreadsheetHeuristic SpreadsheetMode = "heuristic"
	// SpreadsheetExtract extracts header/row text and asks the oracle.
	SpreadsheetExtract SpreadsheetMode = "extract"
)

// Config tunes the single-item classifier.
type Config struct {
	ItemTimeout     time.Duration
	SpreadsheetMode SpreadsheetMode
}

// Classifier composes file adapter, OCR engine and classification oracle for
// one file at a time.
type Classifier struct {
	engine  ocr.Engine
	oracle  oracle.Classifier
	cfg     Config
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

func NewClassifier(engine ocr.Engine, textOracle oracle.Classifier, cfg Config, m *metrics.Pipeline, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 30 * time.Second
	}
	if cfg.SpreadsheetMode == "" {
		cfg.SpreadsheetMode = SpreadsheetHeuristic
	}
	return &Classifier{
		engine:  engine,
		oracle:  textOracle,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// NeedsNetwork predicts whether classifying fd will hit an external service.
// The scheduler uses this to decide which items consume a rate-limit token.
func (c *Classifier) NeedsNetwork(fd entity.FileDescriptor) bool {
	switch fd.Kind {
	case constants.KindUnsupported:
		return false
	case constants.KindSpreadsheet:
		return c.cfg.SpreadsheetMode == SpreadsheetExtract
	default:
		return true
	}
}

// Classify classifies one file. It never returns an error.
func (c *Classifier) Classify(ctx context.Context, fd entity.FileDescriptor) entity.ClassificationResult {
	return c.ClassifyWithHint(ctx, fd, "")
}

// ClassifyWithHint classifies one file with an optional expected-type hint
// forwarded to the oracle.
func (c *Classifier) ClassifyWithHint(ctx context.Context, fd entity.FileDescriptor, typeHint string) (res entity.ClassificationResult) {
	start := time.Now()
	c.metrics.ItemStarted()
	defer func() {
		c.metrics.ItemFinished()
		outcome := "ok"
		if res.Confidence == 0 && res.DocumentType == constants.Other {
			outcome = "fallback"
		}
		c.metrics.ObserveItem(string(res.Source), outcome, time.Since(start))
	}()

	switch fd.Kind {
	case constants.KindUnsupported:
		c.logger.Debug("classify.item.unsupported", "file", fd.Name)
		return fallback(entity.SourceNone, false,
			fmt.Sprintf("unsupported media kind for %q", fd.Name))

	case constants.KindSpreadsheet:
		if c.cfg.SpreadsheetMode == SpreadsheetHeuristic {
			return c.classifySpreadsheetByName(fd)
		}
		return c.runBounded(ctx, fd, func(ctx context.Context) (entity.ClassificationResult, error) {
			return c.classifySpreadsheetByText(ctx, fd, typeHint)
		})

	default:
		return c.runBounded(ctx, fd, func(ctx context.Context) (entity.ClassificationResult, error) {
			return c.classifyViaOCR(ctx, fd, typeHint)
		})
	}
}

// runBounded executes fn under the per-item timeout and converts every error
// or panic into a fallback result.
func (c *Classifier) runBounded(ctx context.Context, fd entity.FileDescriptor, fn func(context.Context) (entity.ClassificationResult, error)) entity.ClassificationResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ItemTimeout)
	defer cancel()

	type outcome struct {
		res entity.ClassificationResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := fn(ctx)
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		c.logger.Warn("classify.item.timeout", "file", fd.Name, "timeout", c.cfg.ItemTimeout)
		return fallback(entity.SourceAI, true,
			fmt.Sprintf("classification timed out after %s", c.cfg.ItemTimeout))
	case out := <-done:
		if out.err != nil {
			c.logger.Warn("classify.item.fallback", "file", fd.Name, "error", out.err)
			return fallback(entity.SourceAI, true, out.err.Error())
		}
		return out.res
	}
}

func (c *Classifier) classifySpreadsheetByName(fd entity.FileDescriptor) entity.ClassificationResult {
	docType, confidence, matched := classifyByFilename(fd.Name)
	meta := constants.Lookup(docType)
	summary := fmt.Sprintf("matched filename keywords for %s", meta.Label)
	if !matched {
		summary = "no filename keyword matched"
	}
	c.logger.Debug("classify.item.heuristic",
		"file", fd.Name, "document_type", docType, "confidence", confidence)
	return entity.ClassificationResult{
		DocumentType: docType,
		Confidence:   confidence,
		Folder:       meta.Folder,
		Milestone:    meta.Milestone,
		Summary:      summary,
		Source:       entity.SourceHeuristic,
		UsedNetwork:  false,
	}
}

func (c *Classifier) classifySpreadsheetByText(ctx context.Context, fd entity.FileDescriptor, typeHint string) (entity.ClassificationResult, error) {
	text, err := adapter.SpreadsheetText(fd)
	if err != nil {
		return entity.ClassificationResult{}, fmt.Errorf("extract spreadsheet text: %w", err)
	}
	cls, err := c.oracle.Classify(ctx, text, typeHint)
	if err != nil {
		return entity.ClassificationResult{}, fmt.Errorf("classify spreadsheet text: %w", err)
	}
	res := fromOracle(cls, text)
	res.Source = entity.SourceSpreadsheet
	return res, nil
}

func (c *Classifier) classifyViaOCR(ctx context.Context, fd entity.FileDescriptor, typeHint string) (entity.ClassificationResult, error) {
	payload, err := adapter.Image(fd)
	if err != nil {
		return entity.ClassificationResult{}, fmt.Errorf("prepare payload: %w", err)
	}
	text, err := c.engine.ExtractText(ctx, payload.Bytes, payload.MimeType)
	if err != nil {
		return entity.ClassificationResult{}, fmt.Errorf("ocr extract: %w", err)
	}
	cls, err := c.oracle.Classify(ctx, text, typeHint)
	if err != nil {
		return entity.ClassificationResult{}, fmt.Errorf("oracle classify: %w", err)
	}
	c.logger.Debug("classify.item.ok",
		"file", fd.Name,
		"ext", filepath.Ext(fd.Name),
		"document_type", cls.DocumentType,
		"confidence", cls.Confidence,
	)
	return fromOracle(cls, text), nil
}

// fromOracle converts an oracle classification into a result, canonicalizing
// the type onto the closed taxonomy and resolving filing metadata.
func fromOracle(cls oracle.Classification, rawText string) entity.ClassificationResult {
	docType, _ := constants.Canonicalize(cls.DocumentType)
	meta := constants.Lookup(docType)
	confidence := cls.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return entity.ClassificationResult{
		DocumentType: docType,
		Confidence:   confidence,
		Folder:       meta.Folder,
		Milestone:    meta.Milestone,
		CustomerName: cls.CustomerName,
		Summary:      cls.Summary,
		Signed:       cls.Signed,
		RawText:      rawText,
		Source:       entity.SourceAI,
		UsedNetwork:  true,
	}
}

// fallback is the degraded result every failure path resolves to.
func fallback(source entity.ClassificationSource, usedNetwork bool, summary string) entity.ClassificationResult {
	meta := constants.Lookup(constants.Other)
	return entity.ClassificationResult{
		DocumentType: constants.Other,
		Confidence:   0,
		Folder:       meta.Folder,
		Milestone:    meta.Milestone,
		Summary:      summary,
		Source:       source,
		UsedNetwork:  usedNetwork,
	}
}
