package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/drive-renamer/constants"
)

var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue is shutting down")
)

// Job asks the worker pool to run one configured job.
type Job struct {
	JobID       string
	FolderID    string
	Trigger     constants.TriggerType
	RequestID   string
	SubmittedAt time.Time
}

// Handler runs a dequeued job. Returned errors are logged by the pool.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
