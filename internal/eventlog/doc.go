// Package eventlog is the durable, append-only log of device events.
//
// Two independent streams are kept, one table each:
//
//	Heartbeat    -> heartbeat_logs
//	StateChange  -> state_logs
//
// Records are immutable. The timestamp is assigned by the store at append
// time (never by the device) and stored as a fixed-width UTC string, so
// ordering by the stored text is ordering by time. Ties on timestamp resolve
// to insertion order via the autoincrement id.
//
// Every storage failure is reported as ErrStorageUnavailable so callers can
// decide between surfacing a 500 (reads) and log-and-drop (ingest).
//
// There is no retention policy; both tables grow without bound.
package eventlog
