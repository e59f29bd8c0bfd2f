// Package database provides the SQLite handle used by FrameHub Core.
//
// Only the command journal (internal/audit) is stored here; the device
// registry is never persisted and always starts from a fresh hub pull.
//
// Open applies WAL mode and a busy timeout, creates the parent directory
// and restricts the file to 0600. MemoryPath opens a private in-memory
// database.
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_name.up.sql with an
// optional .down.sql twin. They are passed in as an fs.FS, normally the
// embedded migrations.FS:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Each migration runs in its own transaction and is recorded in the
// schema_migrations table.
package database
