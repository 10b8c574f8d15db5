package main

import (
	"github.com/nerrad567/smartlock-bridge/internal/channel"
	"github.com/nerrad567/smartlock-bridge/internal/infrastructure/mqtt"
)

// mqttTransport adapts *mqtt.Client to channel.Transport.
//
// The client's Subscribe takes the named mqtt.MessageHandler type; the
// channel package declares the handler as a plain func so it does not
// depend on the MQTT package's types in its interface.
type mqttTransport struct {
	*mqtt.Client
}

var _ channel.Transport = (*mqttTransport)(nil)

// Subscribe forwards to the MQTT client.
func (t *mqttTransport) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return t.Client.Subscribe(topic, qos, handler)
}
