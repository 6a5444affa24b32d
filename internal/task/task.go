// Package task defines the unit of work flowing through the render queue.
package task

import "time"

// Status is the lifecycle state of a task. Transitions are forward-only:
// pending -> processing -> completed | failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions occur after this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// RenderResult is the payload of a completed task.
type RenderResult struct {
	VideoURL string `json:"video_url"`
}

// Task is one rendering job. ID is assigned at enqueue time and never
// changes. Result is set only on completion, Error only on failure.
type Task struct {
	ID         string        `json:"id"`
	Code       string        `json:"code"`
	PromptID   string        `json:"prompt_id"`
	SceneName  string        `json:"scene_name,omitempty"`
	WebhookURL string        `json:"webhook_url,omitempty"`
	Status     Status        `json:"status"`
	Result     *RenderResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
