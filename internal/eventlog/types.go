package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the stored and serialised timestamp format: UTC with
// millisecond precision, always the same width.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Stream identifies one of the two event streams reported by the lock.
type Stream int

// Stream values.
const (
	Heartbeat Stream = iota + 1
	StateChange
)

var streamNames = map[Stream]string{
	Heartbeat:   "heartbeat",
	StateChange: "state_change",
}

// Streams lists every known stream in a stable order.
func Streams() []Stream {
	return []Stream{Heartbeat, StateChange}
}

// String returns the wire name of the stream ("heartbeat", "state_change").
func (s Stream) String() string {
	if name, ok := streamNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stream(%d)", int(s))
}

// Valid reports whether s is a known stream.
func (s Stream) Valid() bool {
	_, ok := streamNames[s]
	return ok
}

// ParseStream converts a wire name back to a Stream.
func ParseStream(name string) (Stream, error) {
	for s, n := range streamNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStream, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stream) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStream, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stream) UnmarshalText(text []byte) error {
	parsed, err := ParseStream(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Record is a single logged device event.
//
// Only timestamp and message are part of the JSON form; the mobile client
// reads nothing else.
type Record struct {
	// ID is the autoincrement row id, unique within a stream.
	ID int64 `json:"-"`

	// Stream is the stream the record belongs to.
	Stream Stream `json:"-"`

	// Timestamp is the server-assigned ingestion time (UTC, millisecond precision).
	Timestamp time.Time `json:"timestamp"`

	// Message is the device payload, stored byte-for-byte.
	Message string `json:"message"`
}

// MarshalJSON renders the record as {"timestamp": "...", "message": "..."}
// with the fixed-width timestamp layout.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		Message   string `json:"message"`
	}{
		Timestamp: FormatTimestamp(r.Timestamp),
		Message:   r.Message,
	})
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Store is the durable log contract.
//
// Implementations must be safe for concurrent use. Append must not return
// until the record is durable.
type Store interface {
	// Append writes a new record stamped with the current time and returns
	// it, including its assigned id.
	Append(ctx context.Context, stream Stream, message string) (Record, error)

	// Latest returns the most recent record, or nil when the stream is empty.
	Latest(ctx context.Context, stream Stream) (*Record, error)

	// All returns every record in the stream, oldest first.
	All(ctx context.Context, stream Stream) ([]Record, error)

	// Count returns the number of records in the stream.
	Count(ctx context.Context, stream Stream) (int64, error)
}
