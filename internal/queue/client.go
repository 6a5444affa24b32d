package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"manimq/internal/pkg/logger"
	"manimq/internal/task"
)

// EnqueueRequest carries the fields of a new submission.
type EnqueueRequest struct {
	Code       string
	PromptID   string
	SceneName  string
	WebhookURL string
}

// Client composes the task record store, the pending list and the event
// publisher into the queue operations the API and workers share. It is
// constructed explicitly and passed to its users; there is no package
// singleton.
type Client struct {
	store Store
	log   *logger.Logger
}

// NewClient creates a Client over store.
func NewClient(store Store, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Client{store: store, log: log.WithComponent("queue")}
}

// Enqueue allocates an ID, writes a pending record, appends the ID to
// the queue tail and publishes a task_added event. The record is written
// before the ID is queued, so Get succeeds as soon as Enqueue returns.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	t := &task.Task{
		ID:         uuid.NewString(),
		Code:       req.Code,
		PromptID:   req.PromptID,
		SceneName:  req.SceneName,
		WebhookURL: req.WebhookURL,
		Status:     task.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := c.store.CreateTask(ctx, t); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	if err := c.store.PushPending(ctx, t.ID); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	c.publish(ctx, Event{Type: EventTaskAdded, TaskID: t.ID, Status: task.StatusPending})
	return t.ID, nil
}

// Get returns the current record, or nil when no such task exists.
func (c *Client) Get(ctx context.Context, id string) (*task.Task, error) {
	return c.store.GetTask(ctx, id)
}

// UpdateStatus overwrites status and the relevant result/error field and
// publishes a status_update event. It returns false when the record does
// not exist. Transition monotonicity is the caller's responsibility.
func (c *Client) UpdateStatus(ctx context.Context, id string, st task.Status, result *task.RenderResult, errMsg string) (bool, error) {
	ok, err := c.store.UpdateStatus(ctx, id, st, result, errMsg)
	if err != nil || !ok {
		return ok, err
	}

	c.publish(ctx, Event{Type: EventStatusUpdate, TaskID: id, Status: st})
	return true, nil
}

// DequeueBlocking removes one ID from the head of the pending list,
// waiting up to timeout, and returns the associated record. It returns
// (nil, nil) on timeout.
func (c *Client) DequeueBlocking(ctx context.Context, timeout time.Duration) (*task.Task, error) {
	id, err := c.store.PopPending(ctx, timeout)
	if err != nil || id == "" {
		return nil, err
	}
	return c.claimed(ctx, id)
}

// DequeueNonblocking is DequeueBlocking without waiting.
func (c *Client) DequeueNonblocking(ctx context.Context) (*task.Task, error) {
	id, err := c.store.TryPopPending(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	return c.claimed(ctx, id)
}

func (c *Client) claimed(ctx context.Context, id string) (*task.Task, error) {
	t, err := c.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dequeue %s: %w", id, err)
	}
	if t == nil {
		// The record was evicted while the ID sat in the queue. Treat
		// as an empty pop; the caller re-polls.
		c.log.Warn("dequeued id with no record", "task_id", id)
		return nil, nil
	}
	return t, nil
}

// CleanOldTasks evicts terminal records, oldest first, until at most
// maxTasks remain. In-flight records (pending or processing) are never
// removed, so an ID still sitting in the pending list keeps its record.
// It returns the number of records removed.
func (c *Client) CleanOldTasks(ctx context.Context, maxTasks int) (int, error) {
	ids, err := c.store.TaskIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("clean old tasks: %w", err)
	}
	if len(ids) <= maxTasks {
		return 0, nil
	}

	excess := len(ids) - maxTasks
	removed := 0
	for _, id := range ids {
		if removed >= excess {
			break
		}
		t, err := c.store.GetTask(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("clean old tasks: %w", err)
		}
		if t == nil {
			continue
		}
		if !t.Status.Terminal() {
			continue
		}
		if err := c.store.DeleteTask(ctx, id); err != nil {
			return removed, fmt.Errorf("clean old tasks: %w", err)
		}
		removed++
	}

	if removed > 0 {
		c.log.Info("evicted old task records", "removed", removed, "max_tasks", maxTasks)
	}
	return removed, nil
}

// Ping reports durable-store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Client) publish(ctx context.Context, ev Event) {
	if err := c.store.Publish(ctx, ev); err != nil {
		c.log.Warn("event publish failed", "type", ev.Type, "task_id", ev.TaskID, "error", err.Error())
	}
}
