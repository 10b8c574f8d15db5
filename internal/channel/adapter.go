package channel

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/mqtt"
)

// Adapter defaults.
const (
	defaultBufferSize     = 256
	defaultPublishTimeout = 5 * time.Second
	defaultQoS            = 1
)

// Discard reasons reported to Metrics.
const (
	ReasonUnknownTopic     = "unknown_topic"
	ReasonMalformedPayload = "malformed_payload"
	ReasonStopped          = "stopped"
)

// Transport is the pub/sub connection the adapter drives.
// *mqtt.Client satisfies it through a thin wrapper in main.go.
type Transport interface {
	// Publish sends payload to topic and returns once the broker accepted it.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers handler for topic and tracks it for reconnects.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// HasSubscription reports whether topic is currently tracked.
	HasSubscription(topic string) bool

	// IsConnected returns true if the session is up.
	IsConnected() bool

	SetOnConnect(func())
	SetOnDisconnect(func(err error))
	SetOnReconnecting(func())
}

// Logger is the structured logger used by the adapter.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Metrics receives adapter counters. Optional.
type Metrics interface {
	MessageReceived(stream string)
	MessageDiscarded(reason string)
	SetChannelConnected(connected bool)
}

// Event is one decoded inbound device message.
type Event struct {
	Stream  eventlog.Stream
	Topic   string
	Message string
}

// Options holds configuration for creating an adapter.
type Options struct {
	// Transport is the broker connection. Required.
	Transport Transport

	// Topics names the inbound and outbound topics.
	Topics mqtt.Topics

	// QoS is used for subscriptions and command publishes. Default 1.
	QoS byte

	// BufferSize is the capacity of the Events channel. Default 256.
	BufferSize int

	// PublishTimeout bounds PublishCommand when the caller's context has
	// no earlier deadline. Default 5s.
	PublishTimeout time.Duration

	// Logger is optional.
	Logger Logger

	// Metrics is optional.
	Metrics Metrics
}

// Adapter connects the lock's MQTT topics to the rest of the server.
//
// Thread Safety: All methods are safe for concurrent use.
type Adapter struct {
	transport      Transport
	topics         mqtt.Topics
	qos            byte
	publishTimeout time.Duration
	routes         map[string]eventlog.Stream

	state  stateFlag
	events chan Event

	done     chan struct{}
	stopOnce sync.Once

	logger  Logger
	metrics Metrics
}

// NewAdapter creates an adapter. Call Start to hook it to the transport.
func NewAdapter(opts Options) (*Adapter, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Topics.Prefix == "" {
		opts.Topics = mqtt.NewTopics("")
	}
	if opts.QoS == 0 {
		opts.QoS = defaultQoS
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}

	return &Adapter{
		transport:      opts.Transport,
		topics:         opts.Topics,
		qos:            opts.QoS,
		publishTimeout: opts.PublishTimeout,
		routes: map[string]eventlog.Stream{
			opts.Topics.Heartbeat(): eventlog.Heartbeat,
			opts.Topics.Status():    eventlog.StateChange,
		},
		events:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Start registers the transport callbacks. If the transport is already
// connected the connect path runs immediately; otherwise the adapter waits
// in Connecting for the transport's first connection.
func (a *Adapter) Start(_ context.Context) {
	a.transport.SetOnConnect(a.handleConnect)
	a.transport.SetOnDisconnect(a.handleDisconnect)
	a.transport.SetOnReconnecting(a.handleReconnecting)

	if a.transport.IsConnected() {
		a.handleConnect()
		return
	}
	a.setState(Connecting)
}

// Stop releases any handler blocked on a full Events channel.
// Messages arriving afterwards are discarded.
func (a *Adapter) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
		a.logInfo("device channel stopped")
	})
}

// Events returns the inbound event stream. There is exactly one consumer.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

// State returns the current connection state.
func (a *Adapter) State() ConnectionState {
	return a.state.load()
}

// PublishCommand sends action to the command topic.
//
// A nil error means the broker accepted the message; it does not mean the
// lock executed it. The call never waits longer than the configured publish
// timeout or ctx, whichever ends first.
func (a *Adapter) PublishCommand(ctx context.Context, action string) error {
	if a.State() != Connected || !a.transport.IsConnected() {
		return fmt.Errorf("%w: broker %s", ErrChannelUnavailable, a.State())
	}

	ctx, cancel := context.WithTimeout(ctx, a.publishTimeout)
	defer cancel()

	topic := a.topics.Command()
	result := make(chan error, 1)
	go func() {
		result <- a.transport.Publish(topic, []byte(action), a.qos, false)
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
		}
		a.logDebug("command published", "topic", topic)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrChannelUnavailable, ctx.Err())
	}
}

// handleConnect runs on every (re)connection.
func (a *Adapter) handleConnect() {
	prev := a.setState(Connected)
	if prev != Connected {
		a.logInfo("device channel connected", "previous", prev.String())
	}

	for _, topic := range a.topics.Inbound() {
		// Subscriptions the transport already restored are left alone
		if a.transport.HasSubscription(topic) {
			continue
		}
		if err := a.transport.Subscribe(topic, a.qos, a.handleMessage); err != nil {
			a.logError("subscribe failed", "topic", topic, "error", err)
			continue
		}
		a.logInfo("subscribed", "topic", topic)
	}
}

func (a *Adapter) handleDisconnect(err error) {
	a.setState(Disconnected)
	a.logWarn("device channel disconnected", "error", err)
}

func (a *Adapter) handleReconnecting() {
	a.setState(Connecting)
	a.logDebug("device channel reconnecting")
}

// handleMessage routes one inbound message. It blocks while the Events
// buffer is full so per-stream order is kept.
func (a *Adapter) handleMessage(topic string, payload []byte) error {
	stream, ok := a.routes[topic]
	if !ok {
		a.discard(ReasonUnknownTopic, topic)
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if a.metrics != nil {
		a.metrics.MessageReceived(stream.String())
	}

	if !utf8.Valid(payload) {
		a.discard(ReasonMalformedPayload, topic)
		return fmt.Errorf("%w: %d bytes on %s", ErrMalformedPayload, len(payload), topic)
	}

	ev := Event{Stream: stream, Topic: topic, Message: string(payload)}

	select {
	case a.events <- ev:
		return nil
	case <-a.done:
		a.discard(ReasonStopped, topic)
		return ErrStopped
	}
}

func (a *Adapter) discard(reason, topic string) {
	a.logWarn("inbound message discarded", "reason", reason, "topic", topic)
	if a.metrics != nil {
		a.metrics.MessageDiscarded(reason)
	}
}

func (a *Adapter) setState(s ConnectionState) ConnectionState {
	prev := a.state.swap(s)
	if a.metrics != nil {
		a.metrics.SetChannelConnected(s == Connected)
	}
	return prev
}

func (a *Adapter) logDebug(msg string, kv ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, kv...)
	}
}

func (a *Adapter) logInfo(msg string, kv ...any) {
	if a.logger != nil {
		a.logger.Info(msg, kv...)
	}
}

func (a *Adapter) logWarn(msg string, kv ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, kv...)
	}
}

func (a *Adapter) logError(msg string, kv ...any) {
	if a.logger != nil {
		a.logger.Error(msg, kv...)
	}
}
