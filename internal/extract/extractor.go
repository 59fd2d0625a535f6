// Package extract converts input documents into plain text for chunking.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// Extractor dispatches on file extension.
type Extractor struct {
	logger       *slog.Logger
	normalizePDF bool
}

type Option func(*Extractor)

// WithNormalizedPDF runs Normalize over PDF page text.
func WithNormalizedPDF(on bool) Option {
	return func(e *Extractor) { e.normalizePDF = on }
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads path from disk and extracts its text.
func (e *Extractor) Extract(ctx context.Context, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("extract.read_failed", "path", path, "error", err)
		return Document{Path: path, Name: filepath.Base(path)}, common.ExtractionError("read file", err)
	}
	doc, err := e.ExtractBytes(ctx, filepath.Base(path), data)
	doc.Path = path
	return doc, err
}

// ExtractBytes extracts caller-supplied content. name supplies the extension.
func (e *Extractor) ExtractBytes(ctx context.Context, name string, data []byte) (Document, error) {
	start := time.Now()
	ext := filepath.Ext(name)
	doc := Document{
		Name: name,
		Stem: strings.TrimSuffix(name, ext),
		Kind: constants.MapExtToSource(ext),
	}
	if err := ctx.Err(); err != nil {
		return doc, err
	}

	e.logger.Debug("extract.start", "file", name, "kind", doc.Kind, "bytes", len(data))

	var err error
	switch doc.Kind {
	case constants.SourcePDF:
		doc.Text, doc.Pages, err = extractPDF(data)
		if err == nil && e.normalizePDF {
			doc.Text = Normalize(doc.Text)
		}
	case constants.SourceCSV:
		doc.Text, doc.Rows, err = extractCSV(data)
	case constants.SourceJSON:
		doc.Text, err = extractJSON(data)
	case constants.SourceXLSX:
		var sheet string
		doc.Text, doc.Rows, sheet, err = extractXLSX(data)
		if sheet != "" {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("used sheet %q", sheet))
		}
	default:
		doc.Text, err = extractText(data)
	}
	doc.Duration = time.Since(start)

	if err != nil {
		e.logger.Error("extract.failed", "file", name, "kind", doc.Kind, "error", err)
		return doc, err
	}
	e.logger.Info("extract.done",
		"file", name,
		"kind", doc.Kind,
		"chars", len([]rune(doc.Text)),
		"pages", doc.Pages,
		"rows", doc.Rows,
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}
