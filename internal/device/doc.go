// Package device holds the device registry: the Device model and its
// persistence in the client table.
//
// Registration is a full replace keyed by device_id: a second registration
// overwrites every mutable field, and lists the device leaves out become
// empty. Presence updates touch only status and last_seen and never create
// a row. Rows are never deleted.
//
// Two Repository implementations share one contract:
//
//   - SQLiteRepository over database/sql and mattn/go-sqlite3
//   - PostgresRepository over pgxpool, scanned with scany
//
// List fields (data_types, commands, type_of_commands) are stored as JSON
// text in scalar columns on both engines.
package device
