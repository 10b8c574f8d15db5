package channel

import "sync/atomic"

// ConnectionState is the adapter's view of the broker session.
type ConnectionState int32

// Connection states.
const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

// String returns a lowercase name for logs and health output.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// stateFlag is written only by transport callbacks and read by publishers.
type stateFlag struct {
	v atomic.Int32
}

func (f *stateFlag) load() ConnectionState {
	return ConnectionState(f.v.Load())
}

// swap stores s and returns the previous state.
func (f *stateFlag) swap(s ConnectionState) ConnectionState {
	return ConnectionState(f.v.Swap(int32(s)))
}
