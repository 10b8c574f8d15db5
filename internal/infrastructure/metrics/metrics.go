// Package metrics exposes the bridge's Prometheus metrics.
//
// Metrics live on a private registry rather than the global default, so
// tests can build as many instances as they like. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartlock"

// Metrics holds every collector the bridge updates.
type Metrics struct {
	registry *prometheus.Registry

	messagesReceived  *prometheus.CounterVec
	messagesDiscarded *prometheus.CounterVec
	recordsAppended   *prometheus.CounterVec
	appendErrors      *prometheus.CounterVec
	commands          *prometheus.CounterVec
	channelConnected  prometheus.Gauge
	wsClients         prometheus.Gauge
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound device messages by stream",
		}, []string{"stream"}),
		messagesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_discarded_total",
			Help:      "Inbound messages dropped before storage by reason",
		}, []string{"reason"}),
		recordsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_appended_total",
			Help:      "Records written to the event log by stream",
		}, []string{"stream"}),
		appendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "append_errors_total",
			Help:      "Event log writes that failed and were dropped, by stream",
		}, []string{"stream"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Client commands by result",
		}, []string{"result"}),
		channelConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_connected",
			Help:      "1 when the MQTT session to the broker is up",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected live-feed WebSocket clients",
		}),
	}

	m.registry.MustRegister(
		m.messagesReceived,
		m.messagesDiscarded,
		m.recordsAppended,
		m.appendErrors,
		m.commands,
		m.channelConnected,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// MessageReceived counts an inbound message on a routed topic.
func (m *Metrics) MessageReceived(stream string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(stream).Inc()
}

// MessageDiscarded counts a message dropped before storage.
func (m *Metrics) MessageDiscarded(reason string) {
	if m == nil {
		return
	}
	m.messagesDiscarded.WithLabelValues(reason).Inc()
}

// SetChannelConnected sets the broker connection gauge.
func (m *Metrics) SetChannelConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.channelConnected.Set(1)
		return
	}
	m.channelConnected.Set(0)
}

// RecordAppended counts a stored record.
func (m *Metrics) RecordAppended(stream string) {
	if m == nil {
		return
	}
	m.recordsAppended.WithLabelValues(stream).Inc()
}

// AppendFailed counts a dropped write.
func (m *Metrics) AppendFailed(stream string) {
	if m == nil {
		return
	}
	m.appendErrors.WithLabelValues(stream).Inc()
}

// CommandSubmitted counts a command by gateway result.
func (m *Metrics) CommandSubmitted(result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
}

// SetWebSocketClients sets the live-feed client gauge.
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
