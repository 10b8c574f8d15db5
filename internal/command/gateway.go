// Package command validates client commands and forwards them to the lock.
//
// The only check is a single shared PIN. Accepted actions are passed through
// unchanged; "lock" and "unlock" are conventions of the firmware, not of
// this package.
package command

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/nerrad567/smartlock-bridge/internal/channel"
)

// Gateway errors. Check with errors.Is.
var (
	// ErrInvalidCredential is returned when the PIN does not match.
	// Nothing is published.
	ErrInvalidCredential = errors.New("command: invalid credential")

	// ErrChannelUnavailable is returned when the device channel cannot take
	// the command right now. The client may retry.
	ErrChannelUnavailable = errors.New("command: channel unavailable")
)

// Result labels reported to Metrics.
const (
	ResultAccepted           = "accepted"
	ResultInvalidCredential  = "invalid_credential"
	ResultChannelUnavailable = "channel_unavailable"
)

// Publisher sends an action to the device. *channel.Adapter implements it.
type Publisher interface {
	PublishCommand(ctx context.Context, action string) error
}

// Logger is the structured logger used by the gateway.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Metrics receives one call per Submit. Optional.
type Metrics interface {
	CommandSubmitted(result string)
}

// Gateway checks the shared secret and forwards accepted commands.
type Gateway struct {
	secret    []byte
	publisher Publisher
	logger    Logger
	metrics   Metrics
}

// NewGateway creates a gateway that accepts commands carrying secret.
func NewGateway(secret string, publisher Publisher) (*Gateway, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	return &Gateway{
		secret:    []byte(secret),
		publisher: publisher,
	}, nil
}

// SetLogger sets an optional logger.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// SetMetrics sets an optional metrics sink.
func (g *Gateway) SetMetrics(metrics Metrics) {
	g.metrics = metrics
}

// Submit validates secret and publishes action.
//
// It returns nil (accepted) as soon as the broker takes the message, without
// waiting for the lock to report a state change. Repeated submissions
// publish repeatedly.
func (g *Gateway) Submit(ctx context.Context, secret, action string) error {
	if subtle.ConstantTimeCompare([]byte(secret), g.secret) != 1 {
		g.record(ResultInvalidCredential)
		if g.logger != nil {
			g.logger.Warn("command rejected", "reason", ResultInvalidCredential)
		}
		return ErrInvalidCredential
	}

	if err := g.publisher.PublishCommand(ctx, action); err != nil {
		g.record(ResultChannelUnavailable)
		if g.logger != nil {
			g.logger.Warn("command not delivered", "action", action, "error", err)
		}
		if errors.Is(err, channel.ErrChannelUnavailable) {
			return fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	g.record(ResultAccepted)
	if g.logger != nil {
		g.logger.Info("command sent", "action", action)
	}
	return nil
}

func (g *Gateway) record(result string) {
	if g.metrics != nil {
		g.metrics.CommandSubmitted(result)
	}
}
