// Package database provides SQLite connectivity for the smart lock bridge.
//
// The event log lives in a single SQLite file opened with:
//   - WAL journal mode so HTTP reads do not block ingestion writes
//   - synchronous=FULL so an acknowledged insert survives power loss
//   - a busy timeout to ride out brief lock contention
//   - one pooled connection (SQLite is a single-writer database)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded SQL files named YYYYMMDD_HHMMSS_name.up.sql with a
// matching .down.sql. They are applied oldest first, one transaction each,
// and recorded in schema_migrations.
package database
