package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// Row pairs one input file with its classification for reporting.
type Row struct {
	Filename string
	Result   entity.ClassificationResult
}

// Service produces XLSX bytes summarizing a classification batch.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BatchReportXLSX returns an XLSX workbook (as bytes) listing every file's
// classification outcome, one row per input, in input order.
func (s *Service) BatchReportXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Classification"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"File",
		"Document Type",
		"Label",
		"Confidence",
		"Customer",
		"Folder",
		"Milestone",
		"Signed",
		"Source",
		"Summary",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rowNum := 2
	needsReview := 0
	for _, r := range rows {
		meta := constants.Lookup(r.Result.DocumentType)
		if r.Result.Confidence == 0 {
			needsReview++
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.Filename)
		write(2, string(r.Result.DocumentType))
		write(3, meta.Label)
		write(4, r.Result.Confidence)
		write(5, r.Result.CustomerName)
		write(6, r.Result.Folder)
		write(7, r.Result.Milestone)
		write(8, r.Result.Signed)
		write(9, string(r.Result.Source))
		write(10, truncate(r.Result.Summary, 140))

		rowNum++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 40) // file
	_ = f.SetColWidth(sheet, "B", "C", 24) // type + label
	_ = f.SetColWidth(sheet, "E", "E", 26) // customer
	_ = f.SetColWidth(sheet, "F", "G", 20) // filing
	_ = f.SetColWidth(sheet, "J", "J", 56) // summary

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"needs_review", needsReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
