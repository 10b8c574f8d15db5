// Package channel bridges the server to the lock's MQTT topics.
//
// The Adapter owns the connection state machine
//
//	Disconnected -> Connecting -> Connected -> Disconnected ...
//
// driven by the transport's connect, reconnecting and connection-lost
// callbacks. Reconnection and backoff belong to the transport; the adapter
// only re-subscribes to the inbound topics when a connection comes up
// without them.
//
// Inbound messages are decoded and handed to a consumer through Events(),
// so the MQTT callback never waits on storage. Outbound commands go through
// PublishCommand, which refuses to publish unless Connected.
package channel
