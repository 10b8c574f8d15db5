package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/smartlock-bridge/internal/eventlog"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/logging"
)

// dialWS opens a WebSocket to the harness router.
func dialWS(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(h.router)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func subscribe(t *testing.T, conn *websocket.Conn, channels ...string) WSMessage {
	t.Helper()
	err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: channels},
	})
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	return readWS(t, conn)
}

func TestWebSocket_StreamsSubscribedRecords(t *testing.T) {
	h := newHarness(t)
	conn := dialWS(t, h)

	if resp := subscribe(t, conn, "state_change"); resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	// Heartbeats are not subscribed and must not arrive
	h.broker.deliver("smartLock/heartbeat", "OK battery:90")
	h.broker.deliver("smartLock/status", "door:true lock:false")

	msg := readWS(t, conn)
	if msg.Type != WSTypeEvent || msg.EventType != "state_change" {
		t.Fatalf("event = %+v, want state_change event", msg)
	}

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("Marshal(payload) error = %v", err)
	}
	var entry logEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("decoding payload %s: %v", raw, err)
	}
	if entry.Message != "door:true lock:false" {
		t.Errorf("message = %q", entry.Message)
	}
	if _, err := time.Parse(eventlog.TimestampLayout, entry.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", entry.Timestamp, err)
	}
}

func TestWebSocket_RejectsUnknownChannel(t *testing.T) {
	h := newHarness(t)
	conn := dialWS(t, h)

	resp := subscribe(t, conn, "device.state_changed")
	if resp.Type != WSTypeError {
		t.Errorf("response type = %q, want error", resp.Type)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	h := newHarness(t)
	conn := dialWS(t, h)

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readWS(t, conn); msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("response = %+v, want pong p1", msg)
	}
}

type gaugeRecorder struct {
	values chan int
}

func (g *gaugeRecorder) SetWebSocketClients(n int) {
	g.values <- n
}

func TestHub_RegisterUnregisterUpdatesGauge(t *testing.T) {
	hub := NewHub(testWSConfig(), logging.Discard())
	gauge := &gaugeRecorder{values: make(chan int, 4)}
	hub.SetMetrics(gauge)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: map[string]struct{}{"heartbeat": {}},
	}

	hub.Register(client)
	if n := <-gauge.values; n != 1 {
		t.Errorf("gauge after register = %d, want 1", n)
	}

	hub.RecordAppended(eventlog.Record{Stream: eventlog.Heartbeat, Message: "OK"})
	select {
	case data := <-client.send:
		if !strings.Contains(string(data), `"message":"OK"`) {
			t.Errorf("broadcast = %s", data)
		}
	default:
		t.Error("subscribed client received nothing")
	}

	hub.Unregister(client)
	if n := <-gauge.values; n != 0 {
		t.Errorf("gauge after unregister = %d, want 0", n)
	}

	// A second unregister must not double-close the send channel
	hub.Unregister(client)
	<-gauge.values

	// Broadcasting to a departed client is harmless
	hub.Broadcast("heartbeat", map[string]string{"message": "late"})
}
