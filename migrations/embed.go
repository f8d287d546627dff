// Package migrations embeds the SQL schema for both storage engines so the
// binary can migrate a fresh database without files on disk.
//
// Both engines share the same two-table layout: client (device registry)
// and sensor_data (append-only readings), with list fields stored as JSON text.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql
var sqliteFS embed.FS

//go:embed postgres/*.sql
var postgresFS embed.FS

// SQLite returns the SQLite migrations rooted at the filesystem root.
func SQLite() fs.FS {
	return mustSub(sqliteFS, "sqlite")
}

// Postgres returns the PostgreSQL migrations rooted at the filesystem root.
func Postgres() fs.FS {
	return mustSub(postgresFS, "postgres")
}

func mustSub(fsys embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		// Only reachable if the embed directive and dir disagree.
		panic("migrations: " + err.Error())
	}
	return sub
}
