package worker

import (
	"context"
	"time"

	"manimq/internal/pkg/logger"
	"manimq/internal/queue"
	"manimq/internal/renderer"
	"manimq/internal/task"
)

// Uploader stores a rendered artifact and returns its public URL.
// storage.Provider satisfies it.
type Uploader interface {
	Upload(ctx context.Context, localPath, contentType string) (string, error)
}

// ResultStore durably records the artifact URL downstream. A task is not
// complete until this write succeeds.
type ResultStore interface {
	SaveVideoURL(ctx context.Context, videoURL, promptID string) error
}

// CompletionNotifier receives every terminal transition, best-effort.
type CompletionNotifier interface {
	Notify(ctx context.Context, t *task.Task)
}

// Deps wires one worker pool.
type Deps struct {
	Queue    *queue.Client
	Renderer renderer.Renderer
	Uploader Uploader
	Results  ResultStore
	Notifier CompletionNotifier

	// TempDir receives per-task scratch files.
	TempDir string
	// Workers is the number of independent loops.
	Workers int
	// DequeueTimeout bounds one blocking pop before re-polling.
	DequeueTimeout time.Duration

	Log *logger.Logger
}
