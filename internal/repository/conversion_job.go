package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// ConversionJob is one row of the ledger: a single file within a batch.
type ConversionJob struct {
	ID           uuid.UUID
	BatchID      string
	SourceFile   string
	Format       string
	Status       constants.JobStatus
	Stage        string
	Fragments    int
	OutputFile   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

type ConversionJobRepository interface {
	Start(ctx context.Context, batchID, sourceFile, format string) (*ConversionJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, outputFile string, fragments int) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, stage, message string, fragments int) error
	Get(ctx context.Context, jobID uuid.UUID) (*ConversionJob, error)
	ListByBatch(ctx context.Context, batchID string) ([]ConversionJob, error)
}

type conversionJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewConversionJobRepository(db *DB, log *slog.Logger) ConversionJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &conversionJobRepo{db: db, log: log, now: time.Now}
}

func (r *conversionJobRepo) Start(ctx context.Context, batchID, sourceFile, format string) (*ConversionJob, error) {
	job := &ConversionJob{
		ID:         uuid.New(),
		BatchID:    batchID,
		SourceFile: sourceFile,
		Format:     format,
		Status:     constants.JobStatusRunning,
		StartedAt:  r.now().UTC().Truncate(time.Millisecond),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO conversion_job (id, batch_id, source_file, format, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`),
		job.ID.String(), job.BatchID, job.SourceFile, job.Format, string(job.Status), job.StartedAt.UnixMilli(),
	)
	if err != nil {
		r.log.Error("conversion_job start failed", "file", sourceFile, "err", err)
		return nil, err
	}
	r.log.Info("conversion_job started", "job_id", job.ID, "batch_id", batchID, "file", sourceFile, "format", format)
	return job, nil
}

func (r *conversionJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, outputFile string, fragments int) error {
	res, err := r.db.SQL.ExecContext(ctx, r.db.Rebind(
		`UPDATE conversion_job SET status = ?, stage = ?, output_file = ?, fragments = ?, finished_at = ? WHERE id = ?`),
		string(constants.JobStatusConverted), constants.StageSerialize, outputFile, fragments, r.now().UnixMilli(), jobID.String(),
	)
	if err = checkUpdated(res, err); err != nil {
		r.log.Error("conversion_job finish(CONVERTED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("conversion_job finished (CONVERTED)", "job_id", jobID, "output", outputFile, "fragments", fragments)
	return nil
}

func (r *conversionJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, stage, message string, fragments int) error {
	res, err := r.db.SQL.ExecContext(ctx, r.db.Rebind(
		`UPDATE conversion_job SET status = ?, stage = ?, error_message = ?, fragments = ?, finished_at = ? WHERE id = ?`),
		string(constants.JobStatusFailed), stage, message, fragments, r.now().UnixMilli(), jobID.String(),
	)
	if err = checkUpdated(res, err); err != nil {
		r.log.Error("conversion_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("conversion_job finished (FAILED)", "job_id", jobID, "stage", stage, "error", message)
	return nil
}

const selectJob = `SELECT id, batch_id, source_file, format, status, stage, fragments, output_file, error_message, started_at, finished_at FROM conversion_job`

func (r *conversionJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*ConversionJob, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.Rebind(selectJob+` WHERE id = ?`), jobID.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return job, err
}

func (r *conversionJobRepo) ListByBatch(ctx context.Context, batchID string) ([]ConversionJob, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(selectJob+` WHERE batch_id = ? ORDER BY started_at, id`), batchID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ConversionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*ConversionJob, error) {
	var (
		job        ConversionJob
		id, status string
		started    int64
		finished   int64
	)
	if err := s.Scan(&id, &job.BatchID, &job.SourceFile, &job.Format, &status, &job.Stage,
		&job.Fragments, &job.OutputFile, &job.ErrorMessage, &started, &finished); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	job.ID = parsed
	job.Status = constants.JobStatus(status)
	job.StartedAt = time.UnixMilli(started).UTC()
	if finished > 0 {
		job.FinishedAt = time.UnixMilli(finished).UTC()
	}
	return &job, nil
}

func checkUpdated(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
