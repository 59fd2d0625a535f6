package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/dataset-generator/internal/chunk"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/extract"
)

// extract prints the text the pipeline would send to the model for one file.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "extract <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	doc, err := extract.NewExtractor(logger).Extract(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", common.UserMessage(err), "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	fmt.Println(doc.Text)

	logger.Info("text extraction OK",
		"kind", doc.Kind,
		"pages", doc.Pages,
		"rows", doc.Rows,
		"chars", len([]rune(doc.Text)),
		"fragments", chunk.Count(doc.Text, chunk.DefaultMaxFragmentSize),
		"warnings", len(doc.Warnings),
		"duration_ms", dur.Milliseconds(),
	)
}
