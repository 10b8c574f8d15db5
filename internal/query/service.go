// Package query serves read access to the event log.
package query

import (
	"context"

	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
)

// Reader is the read side of the log store.
type Reader interface {
	Latest(ctx context.Context, stream eventlog.Stream) (*eventlog.Record, error)
	All(ctx context.Context, stream eventlog.Stream) ([]eventlog.Record, error)
}

// Service answers the client's polling queries.
//
// Message text is returned as stored; interpreting "door:true lock:false"
// style payloads is left to the client.
type Service struct {
	reader Reader
}

// NewService creates a query service over reader.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// LatestHeartbeat returns the newest heartbeat, or nil before the first one.
func (s *Service) LatestHeartbeat(ctx context.Context) (*eventlog.Record, error) {
	return s.reader.Latest(ctx, eventlog.Heartbeat)
}

// LatestState returns the newest state change, or nil before the first one.
func (s *Service) LatestState(ctx context.Context) (*eventlog.Record, error) {
	return s.reader.Latest(ctx, eventlog.StateChange)
}

// AllStates returns every state change, oldest first.
func (s *Service) AllStates(ctx context.Context) ([]eventlog.Record, error) {
	return s.reader.All(ctx, eventlog.StateChange)
}
