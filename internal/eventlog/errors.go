package eventlog

import "errors"

// Domain errors for the eventlog package.
var (
	// ErrStorageUnavailable is returned when the underlying store cannot
	// accept a write or serve a read.
	ErrStorageUnavailable = errors.New("eventlog: storage unavailable")

	// ErrUnknownStream is returned for a Stream value with no backing table.
	ErrUnknownStream = errors.New("eventlog: unknown stream")
)
