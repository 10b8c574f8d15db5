package channel

import "errors"

// Domain errors for the channel package.
var (
	// ErrChannelUnavailable is returned when a command cannot be handed to
	// the broker: the adapter is not connected, the publish failed, or the
	// bounded wait ran out. Callers may retry later.
	ErrChannelUnavailable = errors.New("channel: unavailable")

	// ErrMalformedPayload is returned for inbound payloads that are not UTF-8 text.
	ErrMalformedPayload = errors.New("channel: malformed payload")

	// ErrUnknownTopic is returned for inbound messages on a topic the adapter
	// does not route.
	ErrUnknownTopic = errors.New("channel: unknown topic")

	// ErrStopped is returned when a message arrives after Stop.
	ErrStopped = errors.New("channel: adapter stopped")
)
