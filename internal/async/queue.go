// Package async runs pipeline files on a pool of background workers.
package async

import (
	"context"
	"errors"
	"time"
)

// Job is one file waiting for conversion.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

var ErrQueueClosed = errors.New("queue is shutting down")

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
