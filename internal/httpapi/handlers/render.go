package handlers

import (
	"net/http"
	"strings"

	"manimq/internal/httpkit"
	apperrors "manimq/internal/pkg/errors"
	"manimq/internal/queue"
	"manimq/internal/scene"
	"manimq/internal/task"
)

type RenderRequest struct {
	Code       string `json:"code"`
	PromptID   string `json:"prompt_id"`
	SceneName  string `json:"scene_name,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type renderAccepted struct {
	TaskID string      `json:"task_id"`
	Status task.Status `json:"status"`
}

// PostRender validates a submission and enqueues it. The response is 202
// with the task ID; the render itself happens on a worker.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req RenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, apperrors.Validation("invalid json body"))
		return
	}

	if strings.TrimSpace(req.PromptID) == "" {
		httpkit.WriteError(w, apperrors.Validation("prompt_id is required"))
		return
	}
	if err := scene.ValidateCode(req.Code); err != nil {
		httpkit.WriteError(w, apperrors.Validation("invalid code: "+err.Error()))
		return
	}

	id, err := h.queue.Enqueue(ctx, queue.EnqueueRequest{
		Code:       req.Code,
		PromptID:   req.PromptID,
		SceneName:  strings.TrimSpace(req.SceneName),
		WebhookURL: strings.TrimSpace(req.WebhookURL),
	})
	if err != nil {
		log.Error("enqueue failed", "error", err.Error())
		httpkit.WriteError(w, apperrors.Wrap(err, "enqueue", "failed to enqueue task"))
		return
	}

	log.Info("task accepted", "task_id", id, "prompt_id", req.PromptID)
	httpkit.WriteJSON(w, http.StatusAccepted, renderAccepted{
		TaskID: id,
		Status: task.StatusPending,
	})
}
