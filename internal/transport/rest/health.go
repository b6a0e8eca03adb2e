package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

const serviceName = "cawl-gateway"

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type ComponentCheck struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

type HealthResponse struct {
	Service    string                    `json:"service"`
	Status     HealthStatus              `json:"status"`
	CheckedAt  time.Time                 `json:"checked_at"`
	Components map[string]ComponentCheck `json:"components"`
}

// HealthHandler reports readiness. The gateway itself is not probed here;
// its reachability is checked on demand through the admin connection test.
type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// pingHandler is the liveness probe, it answers as long as the process runs.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler is the readiness probe, it requires a working database.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	check := ComponentCheck{Status: HealthHealthy}
	if err := h.db.PingContext(ctx); err != nil {
		check.Status = HealthUnhealthy
		check.Message = err.Error()
	}
	check.DurationMs = time.Since(start).Milliseconds()

	resp := HealthResponse{
		Service:    serviceName,
		Status:     check.Status,
		CheckedAt:  time.Now(),
		Components: map[string]ComponentCheck{"postgres": check},
	}

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
