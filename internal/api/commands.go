package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/smartlock-bridge/internal/command"
)

// Plain-text bodies returned by POST /sendCommand.
const (
	msgCommandSent        = "Command sent successfully"
	msgInvalidPIN         = "Invalid PIN"
	msgChannelUnavailable = "Lock is unreachable, try again later"
	msgCommandFailed      = "Error sending command"
)

// sendCommandRequest is the body of POST /sendCommand.
type sendCommandRequest struct {
	PIN     string `json:"pin"`
	Command string `json:"command"`
}

// handleSendCommand checks the PIN and publishes the command to the lock.
//
// 200 means the broker accepted the command, not that the lock moved.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	var req sendCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	err := s.commands.Submit(r.Context(), req.PIN, req.Command)
	switch {
	case err == nil:
		writeText(w, http.StatusOK, msgCommandSent)
	case errors.Is(err, command.ErrInvalidCredential):
		writeText(w, http.StatusForbidden, msgInvalidPIN)
	case errors.Is(err, command.ErrChannelUnavailable):
		writeText(w, http.StatusInternalServerError, msgChannelUnavailable)
	default:
		s.logger.Error("command submission failed",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeText(w, http.StatusInternalServerError, msgCommandFailed)
	}
}
