package adapter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/common"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

const (
	maxSheetRows = 50
	maxRowCells  = 30
)

// SpreadsheetText extracts header and row text from a spreadsheet payload
// so it can be classified like any other document text. Output is bounded:
// only the first maxSheetRows rows per sheet are included.
func SpreadsheetText(fd entity.FileDescriptor) (string, error) {
	if fd.Kind != constants.KindSpreadsheet {
		return "", fmt.Errorf("%w: media kind %s is not a spreadsheet", common.ErrUnsupported, fd.Kind)
	}
	if len(fd.Data) == 0 {
		return "", fmt.Errorf("%w: empty payload for %q", common.ErrInvalidInput, fd.Name)
	}

	ext := constants.NormalizeExt(filepath.Ext(fd.Name))
	if ext == "csv" {
		return csvText(fd.Data)
	}
	return xlsxText(fd.Data)
}

func xlsxText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Sheet: ")
		b.WriteString(sheet)
		b.WriteString("\n")
		writeRows(&b, rows)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("workbook contains no cell text")
	}
	return b.String(), nil
}

func csvText(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows [][]string
	for len(rows) < maxSheetRows {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("csv contains no rows")
	}

	var b strings.Builder
	writeRows(&b, rows)
	return b.String(), nil
}

func writeRows(b *strings.Builder, rows [][]string) {
	for i, row := range rows {
		if i >= maxSheetRows {
			break
		}
		if len(row) > maxRowCells {
			row = row[:maxRowCells]
		}
		line := strings.TrimSpace(strings.Join(row, " | "))
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
