// Package export writes spreadsheet companions for tabular dataset outputs.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Dataset"
	minColWidth = 10
	maxColWidth = 60
)

// Service is a tiny façade over excelize that turns CSV rows into an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// RowsToXLSX returns an XLSX workbook (as bytes) with rows[0] as a bold header.
func (s *Service) RowsToXLSX(ctx context.Context, rows [][]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	widths := map[int]int{}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("set %s: %w", cell, err)
			}
			if n := utf8.RuneCountInString(v) + 2; n > widths[c] {
				widths[c] = n
			}
		}
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("header style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return nil, fmt.Errorf("apply header style: %w", err)
		}
	}

	// Widen columns to fit content
	for c, w := range widths {
		col, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(sheetName, col, col, float64(clamp(w, minColWidth, maxColWidth)))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.built",
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteCompanion writes rows next to a CSV output as {name without ext}.xlsx
// and returns the path written.
func (s *Service) WriteCompanion(ctx context.Context, csvPath string, rows [][]string) (string, error) {
	b, err := s.RowsToXLSX(ctx, rows)
	if err != nil {
		return "", err
	}
	path := strings.TrimSuffix(csvPath, ".csv") + ".xlsx"
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write xlsx: %w", err)
	}
	return path, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
