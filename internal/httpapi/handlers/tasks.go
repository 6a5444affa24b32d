package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"manimq/internal/httpkit"
	apperrors "manimq/internal/pkg/errors"
	"manimq/internal/task"
)

type taskResponse struct {
	TaskID    string             `json:"task_id"`
	Status    task.Status        `json:"status"`
	Result    *task.RenderResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// GetTask returns the current state of one task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")

	t, err := h.queue.Get(ctx, taskID)
	if err != nil {
		h.log.FromContext(ctx).Error("task lookup failed", "task_id", taskID, "error", err.Error())
		httpkit.WriteError(w, apperrors.Wrap(err, "get task", "failed to load task"))
		return
	}
	if t == nil {
		httpkit.WriteErr(w, http.StatusNotFound, "TASK_NOT_FOUND", "task not found")
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, taskResponse{
		TaskID:    t.ID,
		Status:    t.Status,
		Result:    t.Result,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
	})
}
