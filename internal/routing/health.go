package routing

import (
	"context"
	"time"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"

	DatabaseReachable   = "reachable"
	DatabaseUnreachable = "unreachable"
)

const healthPingTimeout = 2 * time.Second

// Health is the engine's self-report for the /health endpoint.
type Health struct {
	Status    string          `json:"status"`
	Database  string          `json:"database"`
	Services  map[string]bool `json:"services"`
	Stats     Stats           `json:"stats"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Healthy reports whether the status is HealthHealthy.
func (h Health) Healthy() bool {
	return h.Status == HealthHealthy
}

// Health pings the identity store and checks that every collaborator is
// present. A failed ping degrades the status but never errors.
func (e *Engine) Health(ctx context.Context) Health {
	h := Health{
		Status:   HealthHealthy,
		Database: DatabaseReachable,
		Services: map[string]bool{
			"identification": e.identifier != nil,
			"processor":      e.processor != nil,
			"agent":          e.agent != nil,
			"formatter":      e.formatter != nil,
			"rate_limiter":   e.limiter != nil,
		},
		Stats:     e.Stats(),
		CheckedAt: e.now().UTC(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := e.identifier.Ping(pingCtx); err != nil {
		e.logger.Warn("health: identity store unreachable", "error", err)
		h.Database = DatabaseUnreachable
		h.Status = HealthDegraded
	}
	for name, ok := range h.Services {
		// The rate limiter is optional.
		if !ok && name != "rate_limiter" {
			h.Status = HealthDegraded
		}
	}
	return h
}
