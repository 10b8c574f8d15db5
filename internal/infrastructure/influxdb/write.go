package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// EventMeasurement is the measurement every mirrored log record is written to.
const EventMeasurement = "smartlock_events"

// WriteEvent mirrors one stored log record as a point.
//
// The stream is a tag (two values, low cardinality); the device payload is
// an opaque string field. The write is non-blocking and batched.
//
// Example:
//
//	client.WriteEvent("heartbeat", "OK battery:90", rec.Timestamp)
func (c *Client) WriteEvent(stream, message string, timestamp time.Time) {
	c.WritePointWithTime(EventMeasurement,
		map[string]string{"stream": stream},
		map[string]interface{}{"message": message},
		timestamp,
	)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
// It is a no-op once the client is closed.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
