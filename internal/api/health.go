package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the store check behind /api/health.
const healthCheckTimeout = 2 * time.Second

// handleHealth reports process, store and broker status. It answers 200
// whenever the process is serving, even if a dependency is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	database := "connected"
	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn("store health check failed", "error", err)
		database = "disconnected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"database":       database,
		"mqtt_broker":    s.broker,
		"mqtt_connected": s.mqtt != nil && s.mqtt.IsConnected(),
		"version":        s.version,
	})
}
