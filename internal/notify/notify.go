// Package notify posts best-effort completion webhooks. Delivery failure
// is logged and swallowed; it never affects task state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"manimq/internal/pkg/logger"
	"manimq/internal/task"
)

// Payload is the webhook body.
type Payload struct {
	TaskID string             `json:"task_id"`
	Status task.Status        `json:"status"`
	Result *task.RenderResult `json:"result"`
	Error  string             `json:"error,omitempty"`
}

// Notifier resolves the destination URL and posts completion payloads.
type Notifier struct {
	enabled    bool
	defaultURL string
	client     *http.Client
	log        *logger.Logger
}

// Config controls the notifier.
type Config struct {
	// Enabled turns on delivery to DefaultURL. Per-task webhook URLs
	// are honored even when disabled.
	Enabled    bool
	DefaultURL string
	Timeout    time.Duration
}

// New creates a Notifier.
func New(cfg Config, log *logger.Logger) *Notifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Notifier{
		enabled:    cfg.Enabled,
		defaultURL: cfg.DefaultURL,
		client:     &http.Client{Timeout: cfg.Timeout},
		log:        log.WithComponent("notify"),
	}
}

// Notify posts the task's terminal state to its webhook. A per-task URL
// takes priority over the configured default. No-op when neither is set
// or notification is globally disabled with no per-task override.
func (n *Notifier) Notify(ctx context.Context, t *task.Task) {
	if !n.enabled && t.WebhookURL == "" {
		return
	}

	url := t.WebhookURL
	if url == "" {
		url = n.defaultURL
	}
	if url == "" {
		return
	}

	body, err := json.Marshal(Payload{
		TaskID: t.ID,
		Status: t.Status,
		Result: t.Result,
		Error:  t.Error,
	})
	if err != nil {
		n.log.Warn("webhook payload marshal failed", "task_id", t.ID, "error", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("webhook request build failed", "task_id", t.ID, "error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook delivery failed", "task_id", t.ID, "url", url, "error", err.Error())
		return
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		n.log.Warn("webhook rejected", "task_id", t.ID, "url", url, "status", res.StatusCode)
		return
	}
	n.log.Debug("webhook delivered", "task_id", t.ID, "status", string(t.Status))
}
