package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// Nothing in this file needs a running broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "smartlock-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		Topics: config.MQTTTopicsConfig{Prefix: "smartLock"},
	}
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args) }

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s %s %v", level, msg, args))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// =============================================================================
// Construction and connection state
// =============================================================================

func TestNew_InitialState(t *testing.T) {
	client := New(testConfig())

	if client.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
	if client.HasSubscription("smartLock/heartbeat") {
		t.Error("HasSubscription() = true before Subscribe")
	}
	if got := client.Topics().Command(); got != "smartLock/command" {
		t.Errorf("Topics().Command() = %q, want smartLock/command", got)
	}
}

func TestConnect_ContextExpires(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1 // nothing listens here

	client := New(cfg)
	defer client.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := client.Connect(ctx)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after failed Connect")
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := New(testConfig())

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Publish / Subscribe validation
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := New(testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("lock"), 1, ErrInvalidTopic},
		{"invalid qos", "smartLock/command", []byte("lock"), 3, ErrInvalidQoS},
		{"payload too large", "smartLock/command", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "smartLock/command", []byte("lock"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := New(testConfig())
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, noop, ErrInvalidTopic},
		{"invalid qos", "smartLock/status", 5, noop, ErrInvalidQoS},
		{"nil handler", "smartLock/status", 1, nil, ErrSubscribeFailed},
		{"disconnected", "smartLock/status", 1, noop, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
			if client.SubscriptionCount() != 0 {
				t.Error("failed Subscribe() must not be tracked")
			}
		})
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := New(testConfig())

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("smartLock/status"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Connection callbacks
// =============================================================================

func TestConnectionCallbacks(t *testing.T) {
	client := New(testConfig())
	logger := &recordingLogger{}
	client.SetLogger(logger)

	var (
		connects, reconnects int
		lostErr              error
	)
	client.SetOnConnect(func() { connects++ })
	client.SetOnReconnecting(func() { reconnects++ })
	client.SetOnDisconnect(func(err error) { lostErr = err })

	client.handleConnect()
	if connects != 1 {
		t.Errorf("onConnect called %d times, want 1", connects)
	}

	dropErr := errors.New("connection reset by peer")
	client.handleDisconnect(dropErr)
	if !errors.Is(lostErr, dropErr) {
		t.Errorf("onDisconnect error = %v, want %v", lostErr, dropErr)
	}
	if !logger.contains("MQTT connection lost") {
		t.Error("connection loss was not logged")
	}

	client.handleReconnecting()
	if reconnects != 1 {
		t.Errorf("onReconnecting called %d times, want 1", reconnects)
	}

	client.handleConnect()
	if connects != 2 {
		t.Errorf("onConnect called %d times after reconnect, want 2", connects)
	}
}

func TestDispatch_RecoversPanic(t *testing.T) {
	client := New(testConfig())
	logger := &recordingLogger{}
	client.SetLogger(logger)

	client.dispatch(func(string, []byte) error {
		panic("boom")
	}, "smartLock/status", []byte("x"))

	if !logger.contains("panic recovered") {
		t.Error("handler panic was not logged")
	}
}

func TestDispatch_LogsHandlerError(t *testing.T) {
	client := New(testConfig())
	logger := &recordingLogger{}
	client.SetLogger(logger)

	client.dispatch(func(string, []byte) error {
		return errors.New("rejected")
	}, "smartLock/unknown", []byte("x"))

	if !logger.contains("handler returned error") {
		t.Error("handler error was not logged")
	}
}

func TestDispatch_NoLogger(t *testing.T) {
	client := New(testConfig())

	// Must not panic without a logger
	client.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	client.dispatch(func(string, []byte) error { return errors.New("e") }, "t", nil)
}

// =============================================================================
// Options and payloads
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "bridge", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "smartlock-test" {
		t.Errorf("ClientID = %q, want smartlock-test", opts.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("auto-reconnect and connect-retry must be enabled")
	}
	if opts.ConnectRetryInterval != time.Second || opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("retry intervals = %v/%v, want 1s/5s", opts.ConnectRetryInterval, opts.MaxReconnectInterval)
	}
	if !opts.Order {
		t.Error("ordered delivery must be enabled")
	}
	if !opts.CleanSession {
		t.Error("clean session must be enabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, NewTopics("smartLock"), "smartlock-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Error("will must be enabled and retained")
	}
	if opts.WillTopic != "smartLock/bridge/status" {
		t.Errorf("WillTopic = %q, want smartLock/bridge/status", opts.WillTopic)
	}

	var body map[string]string
	if err := json.Unmarshal(opts.WillPayload, &body); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if body["status"] != statusOffline || body["reason"] != reasonUnexpected {
		t.Errorf("will payload = %v", body)
	}
}

func TestStatusPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := statusPayload(statusOnline, `id"with"quotes`, "", now)

	var body map[string]string
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body["client_id"] != `id"with"quotes` {
		t.Errorf("client_id = %q", body["client_id"])
	}
	if _, ok := body["reason"]; ok {
		t.Error("empty reason should be omitted")
	}
	if body["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Errorf("timestamp = %q", body["timestamp"])
	}
}

// =============================================================================
// Topics
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name   string
		topics Topics
		got    func(Topics) string
		want   string
	}{
		{"heartbeat", NewTopics("smartLock"), Topics.Heartbeat, "smartLock/heartbeat"},
		{"status", NewTopics("smartLock"), Topics.Status, "smartLock/status"},
		{"command", NewTopics("smartLock"), Topics.Command, "smartLock/command"},
		{"bridge status", NewTopics("smartLock"), Topics.BridgeStatus, "smartLock/bridge/status"},
		{"custom prefix", NewTopics("site/frontdoor"), Topics.Command, "site/frontdoor/command"},
		{"empty prefix falls back", NewTopics(""), Topics.Heartbeat, "smartLock/heartbeat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(tt.topics); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTopicsInbound(t *testing.T) {
	inbound := NewTopics("smartLock").Inbound()
	if len(inbound) != 2 || inbound[0] != "smartLock/heartbeat" || inbound[1] != "smartLock/status" {
		t.Errorf("Inbound() = %v", inbound)
	}
}
