package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// tables maps each stream to its backing table. Table names are never taken
// from input, only from this map.
var tables = map[Stream]string{
	Heartbeat:   "heartbeat_logs",
	StateChange: "state_logs",
}

// SQLiteStore implements Store on the heartbeat_logs and state_logs tables.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		now: time.Now,
	}
}

// SetClock replaces the time source used to stamp appended records.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

// Append inserts a record stamped with the current time and returns it.
//
// The insert is a single autocommit statement, so concurrent appends never
// interleave and the row is on disk when Append returns.
func (s *SQLiteStore) Append(ctx context.Context, stream Stream, message string) (Record, error) {
	table, err := tableFor(stream)
	if err != nil {
		return Record{}, err
	}

	// Truncate so the returned record matches what a later read yields
	now := s.now().UTC().Truncate(time.Millisecond)

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (timestamp, message) VALUES (?, ?)",
		FormatTimestamp(now),
		message,
	)
	if err != nil {
		return Record{}, fmt.Errorf("%w: inserting into %s: %v", ErrStorageUnavailable, table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("%w: reading insert id: %v", ErrStorageUnavailable, err)
	}

	return Record{
		ID:        id,
		Stream:    stream,
		Timestamp: now,
		Message:   message,
	}, nil
}

// Latest returns the record with the greatest timestamp, newest insert
// winning ties. A stream with no records yields (nil, nil).
func (s *SQLiteStore) Latest(ctx context.Context, stream Stream) (*Record, error) {
	table, err := tableFor(stream)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, timestamp, message FROM "+table+" ORDER BY timestamp DESC, id DESC LIMIT 1",
	)

	rec, err := scanRecord(row, stream)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// All returns every record of the stream in insertion order. Each call
// re-reads the table.
func (s *SQLiteStore) All(ctx context.Context, stream Stream) ([]Record, error) {
	table, err := tableFor(stream)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, message FROM "+table+" ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", ErrStorageUnavailable, table, err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, stream)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %v", ErrStorageUnavailable, table, err)
	}

	return records, nil
}

// Count returns the number of stored records for the stream.
func (s *SQLiteStore) Count(ctx context.Context, stream Stream) (int64, error) {
	table, err := tableFor(stream)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting %s: %v", ErrStorageUnavailable, table, err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner, stream Stream) (Record, error) {
	var (
		rec       Record
		timestamp string
	)
	if err := sc.Scan(&rec.ID, &timestamp, &rec.Message); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: scanning record: %v", ErrStorageUnavailable, err)
	}

	ts, err := time.Parse(TimestampLayout, timestamp)
	if err != nil {
		// Rows written by other tools may use plain RFC 3339
		ts, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return Record{}, fmt.Errorf("%w: parsing timestamp %q: %v", ErrStorageUnavailable, timestamp, err)
		}
	}

	rec.Timestamp = ts.UTC()
	rec.Stream = stream
	return rec, nil
}

func tableFor(stream Stream) (string, error) {
	table, ok := tables[stream]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownStream, int(stream))
	}
	return table, nil
}
