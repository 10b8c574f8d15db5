// Package mqtt provides MQTT connectivity between the bridge and the lock.
//
// This package manages:
//   - Connection to the broker with paho's auto-reconnect and connect-retry
//   - Subscription tracking so topics are re-sent after every reconnect
//   - Ordered inbound delivery with panic recovery around handlers
//   - Last Will and Testament plus a retained online/offline status
//
// # Topics
//
// All topics share a configurable prefix (default "smartLock"):
//
//	smartLock/heartbeat      device -> bridge
//	smartLock/status         device -> bridge
//	smartLock/command        bridge -> device
//	smartLock/bridge/status  bridge online/offline (retained)
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetOnConnect(func() { ... })
//	if err := client.Connect(ctx); err != nil {
//	    // still retrying in the background
//	}
//	defer client.Close()
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) when the broker is not on localhost
//   - Payloads are opaque text and are never logged at info level
package mqtt
