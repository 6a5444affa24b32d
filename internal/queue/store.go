// Package queue implements the durable task store, the pending FIFO list
// and the status-change event channel behind a single client.
package queue

import (
	"context"
	"time"

	"manimq/internal/task"
)

// Event types published on the status channel.
const (
	EventTaskAdded    = "task_added"
	EventStatusUpdate = "status_update"
)

// Event is a fire-and-forget status-change broadcast. Delivery is
// best-effort; a dropped event never affects task state.
type Event struct {
	Type   string      `json:"type"`
	TaskID string      `json:"task_id"`
	Status task.Status `json:"status,omitempty"`
}

// Store is the durable backend shared by all workers. The atomic pop of
// PopPending/TryPopPending is the sole mutual-exclusion mechanism
// preventing two workers from claiming the same task.
type Store interface {
	// CreateTask writes a new record and registers it in insertion order.
	CreateTask(ctx context.Context, t *task.Task) error

	// GetTask returns the record, or nil when it does not exist.
	GetTask(ctx context.Context, id string) (*task.Task, error)

	// UpdateStatus overwrites status and the relevant result/error field.
	// It returns false when the record does not exist. It does not
	// validate transition order; the worker loop is trusted to call it
	// forward-only.
	UpdateStatus(ctx context.Context, id string, st task.Status, result *task.RenderResult, errMsg string) (bool, error)

	// DeleteTask removes the record and its index entry.
	DeleteTask(ctx context.Context, id string) error

	// TaskIDs returns all record IDs in insertion order, oldest first.
	TaskIDs(ctx context.Context) ([]string, error)

	// PushPending appends the ID to the tail of the pending list.
	PushPending(ctx context.Context, id string) error

	// PopPending removes one ID from the head of the pending list,
	// blocking up to timeout. It returns "" when the wait times out.
	PopPending(ctx context.Context, timeout time.Duration) (string, error)

	// TryPopPending is PopPending without waiting.
	TryPopPending(ctx context.Context) (string, error)

	// Publish broadcasts ev to live subscribers, best-effort.
	Publish(ctx context.Context, ev Event) error

	// Ping reports store connectivity.
	Ping(ctx context.Context) error
}
