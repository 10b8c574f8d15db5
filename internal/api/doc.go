// Package api implements the HTTP front door of the smart lock bridge.
//
// This package provides:
//   - POST /sendCommand: PIN check and command publish to the lock
//   - GET /heartbeatLogs and GET /stateLogs: reads of the event logs
//   - GET /health and GET /metrics for operators
//   - A WebSocket hub pushing newly stored records to subscribers
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Commands flow from the API through the command gateway to the device
// channel, which publishes them over MQTT. Device events flow the other way
// through the ingestor into SQLite, and from there to the log endpoints and
// the WebSocket hub.
//
// # Graceful Degradation
//
// The server keeps running while the broker is down: log reads and the
// WebSocket feed work, and commands fail with 500 until the channel
// reconnects.
package api
