package rest

import (
	"net/http"

	"github.com/coursehub/enrollment-service/internal/transport/rest/response"
)

// Health reports 200 even when the database is unreachable: a load
// balancer probe doesn't need a 5xx to know something's wrong, and the
// body already says so.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"database": dbStatus,
	})
}
