package handler

import (
	"context"
	"net/http"
	"time"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports liveness, and the audit database state when one is
// configured.
type HealthHandler struct {
	db healthChecker
}

func NewHealthHandler(db healthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Health(ctx); err != nil {
			status["status"] = "degraded"
			status["audit_db"] = "unavailable"
			writeSuccess(w, http.StatusServiceUnavailable, status, nil)
			return
		}
		status["audit_db"] = "ok"
	}

	writeSuccess(w, http.StatusOK, status, nil)
}
