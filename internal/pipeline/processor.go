// Package pipeline runs documents through extract, chunk, convert, combine
// and serialize, one file at a time.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/chunk"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/extract"
	"github.com/joseph-ayodele/dataset-generator/internal/format"
	"github.com/joseph-ayodele/dataset-generator/internal/keypool"
	"github.com/joseph-ayodele/dataset-generator/internal/repository"
	"github.com/joseph-ayodele/dataset-generator/internal/serialize"
)

// Converter turns ordered fragments into ordered model outputs.
type Converter interface {
	ConvertAll(ctx context.Context, p format.Policy, frags []chunk.Fragment) ([]string, error)
}

// Combiner merges model outputs into one payload.
type Combiner interface {
	Combine(p format.Policy, outputs []string) (string, error)
}

// Saver persists a payload.
type Saver interface {
	EnsureDir() error
	Save(p format.Policy, stem, payload string) (serialize.Output, error)
}

// Exporter writes an optional spreadsheet next to tabular outputs.
type Exporter interface {
	WriteCompanion(ctx context.Context, csvPath string, rows [][]string) (string, error)
}

// Processor coordinates the per-file stages.
type Processor struct {
	keys      keypool.CredentialSelector
	extractor extract.TextExtractor
	converter Converter
	combiner  Combiner
	saver     Saver
	exporter  Exporter
	jobs      repository.ConversionJobRepository
	chunkSize int
	logger    *slog.Logger
}

type Option func(*Processor)

// WithExporter enables spreadsheet companions for CSV outputs.
func WithExporter(e Exporter) Option { return func(p *Processor) { p.exporter = e } }

// WithJobs records every file in the job ledger.
func WithJobs(r repository.ConversionJobRepository) Option { return func(p *Processor) { p.jobs = r } }

// WithChunkSize overrides chunk.DefaultMaxFragmentSize.
func WithChunkSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewProcessor(keys keypool.CredentialSelector, ex extract.TextExtractor, conv Converter, comb Combiner, saver Saver, opts ...Option) *Processor {
	p := &Processor{
		keys:      keys,
		extractor: ex,
		converter: conv,
		combiner:  comb,
		saver:     saver,
		chunkSize: chunk.DefaultMaxFragmentSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFiles converts every path to outputFormat and returns one record per
// path, in input order. Only an empty credential pool aborts the batch; every
// per-file failure becomes an error record.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, outputFormat constants.OutputFormat) ([]Record, error) {
	if p.keys == nil || p.keys.Len() == 0 {
		p.logger.Error("pipeline.batch.no_credentials")
		return nil, common.EmptyPoolError()
	}

	batchID := uuid.New().String()
	ctx = common.WithBatchID(ctx, batchID)
	policy := format.Lookup(outputFormat)
	start := time.Now()

	if !format.Known(outputFormat) {
		p.logger.Warn("pipeline.batch.unknown_format", "batch_id", batchID, "format", outputFormat)
	}
	if err := p.saver.EnsureDir(); err != nil {
		p.logger.Warn("pipeline.batch.output_dir", "batch_id", batchID, "error", err)
	}
	p.logger.Info("pipeline.batch.start", "batch_id", batchID, "files", len(paths), "format", outputFormat)

	records := make([]Record, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			records = append(records, failure(filepath.Base(path), "cancelled: "+err.Error()))
			continue
		}
		records = append(records, p.ProcessFile(ctx, path, policy))
	}

	ok, failed := Summarize(records)
	p.logger.Info("pipeline.batch.done",
		"batch_id", batchID,
		"succeeded", ok,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

// ProcessFile runs one file through every stage and never returns an error;
// failures are reported in the record.
func (p *Processor) ProcessFile(ctx context.Context, path string, policy format.Policy) Record {
	name := filepath.Base(path)
	ctx = common.WithFileName(ctx, name)
	start := time.Now()
	batchID := common.BatchIDFromContext(ctx)

	var job *repository.ConversionJob
	if p.jobs != nil {
		j, err := p.jobs.Start(ctx, batchID, name, string(policy.Format))
		if err != nil {
			p.logger.Warn("pipeline.job.start_failed", "file", name, "error", err)
		} else {
			job = j
		}
	}

	fragments := 0
	fail := func(stage string, err error) Record {
		msg := common.UserMessage(err)
		p.logger.Error("pipeline.file.failed",
			"batch_id", batchID,
			"file", name,
			"stage", stage,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if job != nil {
			if jerr := p.jobs.FinishFailure(context.WithoutCancel(ctx), job.ID, stage, msg, fragments); jerr != nil {
				p.logger.Warn("pipeline.job.finish_failed", "file", name, "error", jerr)
			}
		}
		return failure(name, msg)
	}

	p.logger.Info("pipeline.file.start", "batch_id", batchID, "file", name, "format", policy.Format)

	doc, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return fail(constants.StageExtract, err)
	}

	frags, err := chunk.Split(doc.Text, p.chunkSize)
	if err != nil {
		return fail(constants.StageChunk, err)
	}
	fragments = len(frags)
	p.logger.Info("pipeline.file.chunked", "file", name, "fragments", fragments, "chunk_size", p.chunkSize)

	outputs, err := p.converter.ConvertAll(ctx, policy, frags)
	if err != nil {
		return fail(constants.StageConvert, err)
	}

	payload, err := p.combiner.Combine(policy, outputs)
	if err != nil {
		return fail(constants.StageCombine, err)
	}

	stem := doc.Stem
	if stem == "" {
		stem = name
	}
	out, err := p.saver.Save(policy, stem, payload)
	if err != nil {
		return fail(constants.StageSerialize, err)
	}

	if p.exporter != nil && policy.Tabular() && len(out.Rows) > 0 {
		if xlsx, err := p.exporter.WriteCompanion(ctx, out.Path, out.Rows); err != nil {
			p.logger.Warn("pipeline.export.failed", "file", name, "error", err)
		} else {
			p.logger.Info("pipeline.export.ok", "file", name, "xlsx", filepath.Base(xlsx))
		}
	}

	if job != nil {
		if err := p.jobs.FinishSuccess(context.WithoutCancel(ctx), job.ID, out.Name, fragments); err != nil {
			p.logger.Warn("pipeline.job.finish_failed", "file", name, "error", err)
		}
	}
	p.logger.Info("pipeline.file.done",
		"batch_id", batchID,
		"file", name,
		"converted", out.Name,
		"fragments", fragments,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return success(name, out.Name)
}
