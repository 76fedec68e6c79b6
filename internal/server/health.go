package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler answers liveness probes, pinging the database when one is wired.
type HealthHandler struct {
	db      *sql.DB
	started time.Time
}

// NewHealthHandler creates a HealthHandler. db may be nil for a pure liveness check.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	payload := map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["database"] = err.Error()
		} else {
			payload["database"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
