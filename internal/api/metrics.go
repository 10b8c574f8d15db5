package api

import "net/http"

// handleMetrics serves the Prometheus exposition for the bridge's registry.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeNotFound(w, "metrics are disabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
