package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/async"
	"github.com/joseph-ayodele/dataset-generator/internal/combine"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/convert"
	"github.com/joseph-ayodele/dataset-generator/internal/export"
	"github.com/joseph-ayodele/dataset-generator/internal/extract"
	"github.com/joseph-ayodele/dataset-generator/internal/format"
	"github.com/joseph-ayodele/dataset-generator/internal/ingest"
	"github.com/joseph-ayodele/dataset-generator/internal/keypool"
	"github.com/joseph-ayodele/dataset-generator/internal/llm/openai"
	"github.com/joseph-ayodele/dataset-generator/internal/pipeline"
	repo "github.com/joseph-ayodele/dataset-generator/internal/repository"
	"github.com/joseph-ayodele/dataset-generator/internal/serialize"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dataset-gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		formatFlag = fs.String("format", string(constants.FormatQA), "output format: "+strings.Join(constants.FormatNames(), " | "))
		outDir     = fs.String("out", "", "output folder (overrides CONVERTED_FOLDER)")
		watch      = fs.Bool("watch", false, "watch the given directories and convert new files")
		strict     = fs.Bool("strict", false, "fail files whose JSONL output does not validate")
		chunkSize  = fs.Int("chunk-size", 0, "max characters per fragment (overrides CHUNK_SIZE)")
		logFormat  = fs.String("log-format", "json", "log output: json | text")
		exportXLSX = fs.Bool("export-xlsx", false, "write an .xlsx companion next to CSV outputs")
		envFile    = fs.String("env", ".env", "dotenv file to load before reading the environment")
		verbose    = fs.Bool("v", false, "debug logging")
		normalize  = fs.Bool("normalize-pdf", false, "collapse whitespace and rule lines in PDF text")
	)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: dataset-gen [flags] <file|dir>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := newLogger(stderr, *logFormat, *verbose)
	slog.SetDefault(logger)

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if err := common.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "path", *envFile, "error", err)
		return 1
	}
	cfg := common.LoadConfig()
	if *outDir != "" {
		cfg.Storage.ConvertedDir = *outDir
	}
	if *chunkSize > 0 {
		cfg.Pipeline.ChunkSize = *chunkSize
	}
	cfg.Pipeline.StrictMode = cfg.Pipeline.StrictMode || *strict
	cfg.Storage.ExportXLSX = cfg.Storage.ExportXLSX || *exportXLSX
	cfg.Pipeline.NormalizePDF = cfg.Pipeline.NormalizePDF || *normalize
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}

	outputFormat := constants.OutputFormat(*formatFlag)
	if !constants.IsKnownFormat(outputFormat) {
		logger.Warn("unknown output format, using plain text", "format", outputFormat)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc, closeFn, err := buildProcessor(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		return 1
	}
	defer closeFn()

	if *watch {
		if err := runWatch(ctx, cfg, proc, outputFormat, fs.Args(), newLineWriter(stdout), logger); err != nil {
			logger.Error("watch mode failed", "error", err)
			return 1
		}
		return 0
	}

	paths, stats, err := ingest.ExpandPaths(fs.Args(), true)
	if err != nil {
		logger.Error("failed to expand input paths", "error", err)
		return 1
	}
	logger.Info("inputs resolved", "files", len(paths), "scanned", stats.Scanned, "skipped", stats.Skipped)

	records, err := proc.ProcessFiles(ctx, paths, outputFormat)
	if err != nil {
		logger.Error("batch aborted", "error", common.UserMessage(err))
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		logger.Error("failed to write results", "error", err)
		return 1
	}

	ok, failed := pipeline.Summarize(records)
	logger.Info("conversion finished", "succeeded", ok, "failed", failed, "output_dir", cfg.Storage.ConvertedDir)
	if failed > 0 {
		return 3
	}
	return 0
}

func newLogger(w io.Writer, kind string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	// stdout carries the JSON result list
	if strings.EqualFold(kind, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// buildProcessor wires every stage from cfg. The returned func releases the
// ledger connection, if one was opened.
func buildProcessor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*pipeline.Processor, func(), error) {
	keys := keypool.Select(cfg.LLM.APIKeys, cfg.LLM.KeyCooldown)
	logger.Info("credential pool ready", "keys", keys.Len(), "cooldown", cfg.LLM.KeyCooldown)

	completer := openai.NewClient(openai.Config{
		BaseURL:          cfg.LLM.BaseURL,
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		TopP:             cfg.LLM.TopP,
		MaxTokens:        cfg.LLM.MaxTokens,
		PresencePenalty:  cfg.LLM.PresencePenalty,
		FrequencyPenalty: cfg.LLM.FrequencyPenalty,
		Timeout:          cfg.LLM.Timeout,
	}, logger)
	logger.Info("llm client ready", "base_url", cfg.LLM.BaseURL, "model", completer.Model())

	converter := convert.NewClient(completer, keys,
		convert.WithPolicy(convert.PolicyFromConfig(cfg.LLM)),
		convert.WithRequestsPerMinute(cfg.LLM.RequestsPerMinute),
		convert.WithLogger(logger),
	)

	opts := []pipeline.Option{
		pipeline.WithChunkSize(cfg.Pipeline.ChunkSize),
		pipeline.WithLogger(logger),
	}
	if cfg.Storage.ExportXLSX {
		opts = append(opts, pipeline.WithExporter(export.NewService(logger)))
	}

	closeFn := func() {}
	if cfg.Database.Driver != "" {
		db, err := repo.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open job ledger: %w", err)
		}
		opts = append(opts, pipeline.WithJobs(repo.NewConversionJobRepository(db, logger)))
		closeFn = func() { db.Close(logger) }
	}

	proc := pipeline.NewProcessor(
		keys,
		extract.NewExtractor(logger, extract.WithNormalizedPDF(cfg.Pipeline.NormalizePDF)),
		converter,
		combine.New(cfg.Pipeline.StrictMode, logger),
		serialize.NewWriter(cfg.Storage.ConvertedDir, logger),
		opts...,
	)
	return proc, closeFn, nil
}

// runWatch converts every supported file that appears under roots until ctx
// is cancelled. Each finished record is printed as one JSON line.
func runWatch(ctx context.Context, cfg *common.Config, proc *pipeline.Processor, outputFormat constants.OutputFormat, roots []string, out *lineWriter, logger *slog.Logger) error {
	if len(cfg.LLM.APIKeys) == 0 {
		return common.EmptyPoolError()
	}

	queue := async.NewProcessorQueue(proc, format.Lookup(outputFormat), logger,
		async.WithWorkers(cfg.Watch.Workers),
		async.WithQueueSize(cfg.Watch.QueueSize),
		async.WithResultHandler(func(_ async.Job, rec pipeline.Record) {
			if err := out.Write(rec); err != nil {
				logger.Error("failed to write result", "error", err)
			}
		}),
	)
	logger.Info("watch mode ready", "batch_id", queue.BatchID(), "workers", cfg.Watch.Workers)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		queue.Shutdown(shutdownCtx)
	}()

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    cfg.Watch.Debounce,
		Exclude:     []string{cfg.Storage.ConvertedDir},
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if err := queue.Enqueue(ctx, async.Job{Path: path}); err != nil {
				logger.Warn("file not queued", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher reported an error", "error", err)
		case <-ctx.Done():
			logger.Info("shutting down watch mode")
			return nil
		}
	}
}
