package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/weiliang-ho/dealerdocs/internal/classify"
	"github.com/weiliang-ho/dealerdocs/internal/common"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
	"github.com/weiliang-ho/dealerdocs/internal/export"
	"github.com/weiliang-ho/dealerdocs/internal/ingest"
	"github.com/weiliang-ho/dealerdocs/internal/metrics"
	"github.com/weiliang-ho/dealerdocs/internal/ocr"
	"github.com/weiliang-ho/dealerdocs/internal/oracle/openai"
	"github.com/weiliang-ho/dealerdocs/internal/resilience"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		dir         = flag.String("dir", "", "directory of customer files to classify (required)")
		out         = flag.String("out", "", "output XLSX report path (optional, defaults to parent directory)")
		policy      = flag.String("policy", "sequential", "batch policy: sequential or bounded")
		concurrency = flag.Int("concurrency", 0, "bounded-concurrency ceiling (0 = config default)")
		delay       = flag.Duration("delay", 0, "sequential inter-item delay (0 = config default)")
		sheets      = flag.String("spreadsheets", "heuristic", "spreadsheet strategy: heuristic or extract")
		skipHidden  = flag.Bool("skip-hidden", true, "skip hidden files and directories")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "classification.xlsx")
	}

	// Setup logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Wire the pipeline
	exec := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	pipelineMetrics := metrics.NewPipeline()

	engine := ocr.NewVisionClient(ocr.Config{
		BaseURL:    cfg.OCR.BaseURL,
		APIKey:     cfg.OCR.APIKey,
		Model:      cfg.OCR.Model,
		Timeout:    cfg.OCR.Timeout,
		MaxImageMB: cfg.OCR.MaxImageMB,
	}, exec, logger)

	textOracle := openai.NewClient(openai.Config{
		BaseURL:         cfg.Oracle.BaseURL,
		APIKey:          cfg.Oracle.APIKey,
		Model:           cfg.Oracle.Model,
		Temperature:     cfg.Oracle.Temperature,
		Timeout:         cfg.Oracle.Timeout,
		LenientOptional: cfg.Oracle.LenientOptional,
	}, exec, logger)

	mode := classify.SpreadsheetHeuristic
	if *sheets == "extract" {
		mode = classify.SpreadsheetExtract
	}
	classifier := classify.NewClassifier(engine, textOracle, classify.Config{
		ItemTimeout:     cfg.Batch.ItemTimeout,
		SpreadsheetMode: mode,
	}, pipelineMetrics, logger)

	schedCfg := classify.SchedulerConfig{
		Policy:          classify.PolicySequential,
		SequentialDelay: cfg.Batch.SequentialDelay,
		Concurrency:     cfg.Batch.Concurrency,
		ChunkDelay:      cfg.Batch.ChunkDelay,
	}
	if *policy == "bounded" {
		schedCfg.Policy = classify.PolicyBounded
	}
	if *concurrency > 0 {
		schedCfg.Concurrency = *concurrency
	}
	if *delay > 0 {
		schedCfg.SequentialDelay = *delay
	}
	scheduler := classify.NewScheduler(classifier, schedCfg, logger)

	// Load input files
	logger.Info("loading files", "dir", *dir)
	files, stats, err := ingest.WalkDirectory(*dir, *skipHidden, logger)
	if err != nil {
		logger.Error("failed to walk directory", "error", err)
		os.Exit(1)
	}
	logger.Info("files loaded",
		"matched", stats.Matched,
		"loaded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	if len(files) == 0 {
		printError("No supported files found under %s\n", *dir)
		os.Exit(1)
	}

	// Classify
	results := scheduler.ClassifyBatch(ctx, files, func(p entity.BatchProgress) {
		attrs := []any{"completed", p.Completed, "total", p.Total, "file", p.Filename}
		if p.Result != nil {
			attrs = append(attrs, "document_type", p.Result.DocumentType, "confidence", p.Result.Confidence)
		}
		logger.Info("progress", attrs...)
	})

	// Report
	rows := make([]export.Row, len(files))
	needsReview := 0
	for i := range files {
		rows[i] = export.Row{Filename: files[i].Name, Result: results[i]}
		if results[i].Confidence == 0 {
			needsReview++
		}
	}
	reportBytes, err := export.NewService(logger).BatchReportXLSX(rows)
	if err != nil {
		logger.Error("failed to build report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, reportBytes, 0644); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"files", len(files),
		"needs_review", needsReview,
		"output_file", *out)

	fmt.Printf("Classification complete!\n")
	fmt.Printf("- Files classified: %d\n", len(files))
	fmt.Printf("- Needs review: %d\n", needsReview)
	fmt.Printf("- Report: %s\n", *out)
}
