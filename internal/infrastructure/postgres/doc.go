// Package postgres provides the optional PostgreSQL storage engine.
//
// It is selected with database.driver: postgres and offers the same
// two-table schema as the SQLite engine, migrated with golang-migrate from
// the embedded migrations/postgres directory. Row-level atomicity comes from
// single-statement INSERT ... ON CONFLICT and UPDATE queries, so concurrent
// ingestion goroutines share the pool without a global write lock.
package postgres
