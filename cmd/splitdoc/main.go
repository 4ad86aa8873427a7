package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/weiliang-ho/dealerdocs/internal/common"
	"github.com/weiliang-ho/dealerdocs/internal/metrics"
	"github.com/weiliang-ho/dealerdocs/internal/ocr"
	"github.com/weiliang-ho/dealerdocs/internal/oracle"
	"github.com/weiliang-ho/dealerdocs/internal/oracle/gemini"
	"github.com/weiliang-ho/dealerdocs/internal/oracle/openai"
	"github.com/weiliang-ho/dealerdocs/internal/pagesplit"
	"github.com/weiliang-ho/dealerdocs/internal/resilience"
)

func main() {
	var (
		in        = flag.String("in", "", "multi-page PDF to analyze and split (required)")
		outDir    = flag.String("outdir", "", "output directory for split documents (default: alongside input)")
		keepBlank = flag.Bool("keep-blank", false, "keep blank pages in split output")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Error: --in is required")
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = filepath.Dir(*in)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	source, err := os.ReadFile(*in)
	if err != nil {
		logger.Error("failed to read input", "path", *in, "error", err)
		os.Exit(1)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	pipelineMetrics := metrics.NewPipeline()

	engine := ocr.NewVisionClient(ocr.Config{
		BaseURL:    cfg.OCR.BaseURL,
		APIKey:     cfg.OCR.APIKey,
		Model:      cfg.OCR.Model,
		Timeout:    cfg.OCR.Timeout,
		MaxImageMB: cfg.OCR.MaxImageMB,
	}, exec, logger)

	batchOracle := openai.NewClient(openai.Config{
		BaseURL:         cfg.Oracle.BaseURL,
		APIKey:          cfg.Oracle.APIKey,
		Model:           cfg.Oracle.Model,
		Temperature:     cfg.Oracle.Temperature,
		Timeout:         cfg.Oracle.Timeout,
		LenientOptional: cfg.Oracle.LenientOptional,
	}, exec, logger)

	// Whole-document strategy is optional: without a Gemini key the
	// analyzer goes straight to the page-by-page fallback.
	var wholeOracle oracle.WholeDocumentClassifier
	if cfg.Oracle.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.Oracle.GeminiAPIKey,
			Model:       cfg.Oracle.GeminiModel,
			Temperature: cfg.Oracle.Temperature,
		}, logger)
		if err != nil {
			logger.Warn("gemini client unavailable, using page-by-page strategy only", "error", err)
		} else {
			defer func() {
				_ = geminiClient.Close()
			}()
			wholeOracle = geminiClient
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, whole-document strategy disabled")
	}

	renderer := pagesplit.NewRenderer(pagesplit.RenderConfig{
		Pdftoppm:    cfg.OCR.Pdftoppm,
		DPI:         cfg.OCR.RenderDPI,
		ThumbnailPx: cfg.OCR.ThumbnailPx,
	})

	analyzer := pagesplit.NewAnalyzer(wholeOracle, batchOracle, engine, renderer,
		pagesplit.AnalyzerConfig{MaxUploadBytes: cfg.Split.MaxUploadBytes},
		pipelineMetrics, logger)

	result, err := analyzer.Analyze(ctx, source)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	pageTexts := make([]string, len(result.Pages))
	for i, p := range result.Pages {
		pageTexts[i] = p.RawText
	}

	splitter := pagesplit.NewSplitter(pagesplit.SplitterConfig{
		BlankThreshold: cfg.Split.BlankThreshold,
	}, logger)
	docs, err := splitter.Split(ctx, source, result.Groups, pageTexts, !*keepBlank)
	if err != nil {
		logger.Error("split failed", "error", err)
		os.Exit(1)
	}

	base := strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	for i, doc := range docs {
		name := fmt.Sprintf("%s_%02d_%s.pdf", base, i+1, doc.DocumentType)
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, doc.Output, 0644); err != nil {
			logger.Error("failed to write split document", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("split document written",
			"path", path, "document_type", doc.DocumentType, "pages", doc.Pages)
	}

	fmt.Printf("Split complete!\n")
	fmt.Printf("- Strategy: %s\n", result.Strategy)
	fmt.Printf("- Pages analyzed: %d\n", len(result.Pages))
	if result.CustomerName != "" {
		fmt.Printf("- Customer: %s\n", result.CustomerName)
	}
	fmt.Printf("- Documents written: %d\n", len(docs))
}
