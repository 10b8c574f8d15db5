package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smartlock-bridge/internal/channel"
)

// healthCheckTimeout bounds the dependency probes behind /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
//
// The lock routes sit at the root because deployed mobile clients call
// them there.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Post("/sendCommand", s.handleSendCommand)
	r.Get("/heartbeatLogs", s.handleHeartbeatLogs)
	r.Get("/stateLogs", s.handleStateLogs)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	MQTTConnected bool   `json:"mqtt_connected"`
	Channel       string `json:"channel,omitempty"`
	Database      string `json:"database"`
}

// handleHealth reports process and dependency health.
//
// A broker outage is reported but does not fail the check: the bridge keeps
// serving logs and reconnects on its own. A database failure returns 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Version:  s.version,
		Database: "ok",
	}

	if s.channel != nil {
		state := s.channel.State()
		resp.Channel = state.String()
		resp.MQTTConnected = state == channel.Connected
	}

	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.database.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
