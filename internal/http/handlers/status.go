package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wolfman30/sms-router/internal/cache"
	"github.com/wolfman30/sms-router/internal/routing"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// EngineStatus is the read side of the routing engine.
type EngineStatus interface {
	Health(ctx context.Context) routing.Health
	Stats() routing.Stats
}

// StatusHandler serves /health and /stats.
type StatusHandler struct {
	engine EngineStatus
	caches map[string]cache.Sweeper
	logger *logging.Logger
}

// NewStatusHandler creates a status handler. caches are reported by name on
// /stats and may be nil.
func NewStatusHandler(engine EngineStatus, caches map[string]cache.Sweeper, logger *logging.Logger) *StatusHandler {
	if engine == nil {
		panic("handlers: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatusHandler{engine: engine, caches: caches, logger: logger}
}

// StatsResponse is the /stats payload.
type StatsResponse struct {
	Routing routing.Stats          `json:"routing"`
	Caches  map[string]cache.Stats `json:"caches"`
}

// Health handles GET /health: 200 when healthy, 503 when degraded.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.engine.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy() {
		status = http.StatusServiceUnavailable
		h.logger.Warn("health check degraded", "database", health.Database)
	}
	writeJSON(w, status, health)
}

// Stats handles GET /stats.
func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Routing: h.engine.Stats(),
		Caches:  make(map[string]cache.Stats, len(h.caches)),
	}
	for name, c := range h.caches {
		resp.Caches[name] = c.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
