// Package ingest moves inbound device events into the durable log.
//
// A single Ingestor drains the channel adapter's event queue, so records of
// one stream are appended in the order they arrived from the broker.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/smartlock-bridge/internal/channel"
	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
)

// Appender is the write side of the log store.
type Appender interface {
	Append(ctx context.Context, stream eventlog.Stream, message string) (eventlog.Record, error)
}

// RecordObserver is notified after a record is durably stored.
// Implementations must not block; they run on the ingest goroutine.
type RecordObserver interface {
	RecordAppended(rec eventlog.Record)
}

// ObserverFunc adapts a function to RecordObserver.
type ObserverFunc func(rec eventlog.Record)

// RecordAppended calls f(rec).
func (f ObserverFunc) RecordAppended(rec eventlog.Record) { f(rec) }

// Logger is the structured logger used by the ingestor.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Metrics receives ingest counters. Optional.
type Metrics interface {
	RecordAppended(stream string)
	AppendFailed(stream string)
}

// Options holds configuration for creating an ingestor.
type Options struct {
	// Events is the inbound queue, normally channel.Adapter.Events(). Required.
	Events <-chan channel.Event

	// Store receives every event. Required.
	Store Appender

	// Observers are notified in order after each successful append.
	Observers []RecordObserver

	Logger  Logger
	Metrics Metrics
}

// Ingestor drains events into the store.
type Ingestor struct {
	events    <-chan channel.Event
	store     Appender
	observers []RecordObserver
	logger    Logger
	metrics   Metrics

	appended atomic.Uint64
	dropped  atomic.Uint64
}

// New creates an ingestor.
func New(opts Options) (*Ingestor, error) {
	if opts.Events == nil {
		return nil, fmt.Errorf("events channel is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &Ingestor{
		events:    opts.Events,
		store:     opts.Store,
		observers: opts.Observers,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Run consumes events until ctx is cancelled.
//
// A storage failure drops the event: it is logged and counted but never
// retried, since a retried insert could duplicate or reorder records.
func (i *Ingestor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-i.events:
			i.handle(ctx, ev)
		}
	}
}

// Stats returns the number of appended and dropped events since start.
func (i *Ingestor) Stats() (appended, dropped uint64) {
	return i.appended.Load(), i.dropped.Load()
}

func (i *Ingestor) handle(ctx context.Context, ev channel.Event) {
	stream := ev.Stream.String()

	rec, err := i.store.Append(ctx, ev.Stream, ev.Message)
	if err != nil {
		i.dropped.Add(1)
		if i.metrics != nil {
			i.metrics.AppendFailed(stream)
		}
		if i.logger != nil {
			msg := "storage unavailable, event dropped"
			if !errors.Is(err, eventlog.ErrStorageUnavailable) {
				msg = "append rejected, event dropped"
			}
			i.logger.Error(msg, "stream", stream, "topic", ev.Topic, "error", err)
		}
		return
	}

	i.appended.Add(1)
	if i.metrics != nil {
		i.metrics.RecordAppended(stream)
	}
	if i.logger != nil {
		i.logger.Debug("event stored", "stream", stream, "id", rec.ID)
	}

	for _, obs := range i.observers {
		obs.RecordAppended(rec)
	}
}
