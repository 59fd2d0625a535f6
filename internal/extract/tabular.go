package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

func extractCSV(data []byte) (string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, common.ExtractionError("parse csv", err)
		}
		records = append(records, rec)
	}
	text, rows := renderGrid(records)
	return text, rows, nil
}

// extractXLSX renders the first sheet that has any rows.
func extractXLSX(data []byte) (string, int, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", 0, "", common.ExtractionError("open xlsx", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", 0, sheet, common.ExtractionError("read sheet "+sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		text, n := renderGrid(rows)
		return text, n, sheet, nil
	}
	return "", 0, "", nil
}

// renderGrid prints records as an ASCII table with the first record as the
// header. Short rows are padded so every column lines up.
func renderGrid(records [][]string) (string, int) {
	if len(records) == 0 {
		return "", 0
	}
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	padded := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, width)
		for j := range rec {
			row[j] = strings.TrimSpace(rec[j])
		}
		padded[i] = row
	}

	var buf bytes.Buffer
	t := tablewriter.NewWriter(&buf)
	t.SetHeader(padded[0])
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(padded[1:])
	t.Render()
	return buf.String(), len(padded) - 1
}
