package mqtt

// DefaultTopicPrefix is the topic namespace the lock firmware publishes under.
const DefaultTopicPrefix = "smartLock"

// Topics builds the lock's MQTT topics from a shared prefix.
//
//	topics := mqtt.NewTopics("smartLock")
//	topics.Heartbeat() // "smartLock/heartbeat"
//	topics.Command()   // "smartLock/command"
type Topics struct {
	Prefix string
}

// NewTopics returns a topic builder, falling back to DefaultTopicPrefix
// when prefix is empty.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// Heartbeat is the inbound topic for periodic device liveness reports.
//
// Example: smartLock/heartbeat
func (t Topics) Heartbeat() string {
	return t.Prefix + "/heartbeat"
}

// Status is the inbound topic for door and lock state changes.
//
// Example: smartLock/status
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// Command is the outbound topic the device listens on for actions.
//
// Example: smartLock/command
func (t Topics) Command() string {
	return t.Prefix + "/command"
}

// BridgeStatus carries the bridge's own online/offline state (retained, LWT).
//
// Example: smartLock/bridge/status
func (t Topics) BridgeStatus() string {
	return t.Prefix + "/bridge/status"
}

// Inbound returns every topic the bridge subscribes to.
func (t Topics) Inbound() []string {
	return []string{t.Heartbeat(), t.Status()}
}
