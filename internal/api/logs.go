package api

import (
	"net/http"

	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
)

// msgLogsFailed is returned when the log store cannot be read.
const msgLogsFailed = "Error retrieving logs"

// handleHeartbeatLogs returns the latest heartbeat as a zero- or one-element array.
func (s *Server) handleHeartbeatLogs(w http.ResponseWriter, r *http.Request) {
	rec, err := s.queries.LatestHeartbeat(r.Context())
	if err != nil {
		s.logger.Error("reading heartbeat log failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeText(w, http.StatusInternalServerError, msgLogsFailed)
		return
	}

	records := []eventlog.Record{}
	if rec != nil {
		records = append(records, *rec)
	}
	writeJSON(w, http.StatusOK, records)
}

// handleStateLogs returns every state record, oldest first.
// Clients derive the current door and lock state from the last element.
func (s *Server) handleStateLogs(w http.ResponseWriter, r *http.Request) {
	records, err := s.queries.AllStates(r.Context())
	if err != nil {
		s.logger.Error("reading state log failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeText(w, http.StatusInternalServerError, msgLogsFailed)
		return
	}
	if records == nil {
		records = []eventlog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
