/*
Package sqlite provides an embedded SQLite implementation of the Engine
interface, backed by modernc.org/sqlite (pure Go, no CGO).

The engine supports:
  - Descriptor discovery with replace-on-reset semantics
  - Non-destructive schema synchronization (CREATE TABLE IF NOT EXISTS plus
    ALTER TABLE ADD COLUMN for missing columns; nothing is ever dropped)
  - Table-namespaced secondary indexes
  - Versioned up/down migrations with a configurable bookkeeping table
  - Forked read-only sessions over one shared WAL-mode handle

Migrations:
Opening with a Migrations FS enables the engine.Migrator capability.
Migration files use section markers:

	-- +migrate Up
	CREATE TABLE widgets (id TEXT PRIMARY KEY);

	-- +migrate Down
	DROP TABLE widgets;

The bookkeeping table name can be redirected with SetMigrationsTable, which
the registry uses to track each scope's migrations in its own namespace.

In-memory databases (Path ":memory:") are supported for tests.
*/
package sqlite
