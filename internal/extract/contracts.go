package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/dataset-generator/constants"
)

// TextExtractor turns one document into a single UTF-8 string.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Document is the extracted content of one input file.
type Document struct {
	Name     string // base name, e.g. "report.pdf"
	Stem     string // name without extension, used for the output file
	Path     string
	Text     string
	Kind     constants.SourceKind
	Pages    int // PDF only
	Rows     int // CSV / XLSX only, data rows excluding header
	Duration time.Duration
	Warnings []string
}
