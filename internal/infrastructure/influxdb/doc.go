// Package influxdb mirrors stored lock events into InfluxDB.
//
// SQLite stays the source of truth for the HTTP API. When enabled, every
// record the ingestor stores is also written to the smartlock_events
// measurement (tag "stream", field "message") so heartbeats and state
// changes can be graphed next to other home telemetry.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror switched off
//	}
//	defer client.Close()
//
//	client.WriteEvent("state_change", "door:true lock:false", time.Now())
//
// Writes are non-blocking and batched (batch_size, flush_interval); failures
// arrive asynchronously through SetOnError.
package influxdb
