// Package database provides SQLite connectivity for SensorHub Core.
//
// This package manages:
//   - The database connection with WAL mode and a busy timeout
//   - A single-connection pool, so every statement is serialised
//   - Schema migrations via golang-migrate from an embedded filesystem
//
// Security Considerations:
//   - All repository queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.SQLite()); err != nil {
//	    return err
//	}
package database
