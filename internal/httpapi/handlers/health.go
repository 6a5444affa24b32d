package handlers

import (
	"context"
	"net/http"
	"time"

	"manimq/internal/httpkit"
)

// Health reports service liveness and connectivity to the queue's
// backing store. The status degrades when the store ping fails; the
// response stays 200 so load balancers read the body, not the code.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]any{
		"status":  "ok",
		"service": "manimq-api",
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	queueCheck := map[string]any{"status": "ok"}
	if err := h.queue.Ping(checkCtx); err != nil {
		queueCheck["status"] = "error"
		queueCheck["error"] = err.Error()
		health["status"] = "degraded"
		h.log.FromContext(ctx).Warn("health check degraded", "error", err.Error())
	}
	queueCheck["latency_ms"] = time.Since(start).Milliseconds()
	health["checks"] = map[string]any{"queue": queueCheck}

	httpkit.WriteJSON(w, http.StatusOK, health)
}
