/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package engine

import (
	"context"

	"github.com/suparena/entityscope/schema"
)

// Engine is the narrow contract the registry consumes from the underlying
// embedded relational engine. The registry manages naming, ownership, and
// lifecycle of dynamic entities; everything below that line — schema
// discovery, diffing, SQL execution — belongs to the Engine.
type Engine interface {
	// Discover makes an entity descriptor known to the engine. With reset set
	// to true an existing descriptor under the same entity name is replaced.
	Discover(ctx context.Context, desc *schema.Descriptor, reset bool) error

	// Forget removes the engine's metadata for an entity. Physical tables
	// are untouched.
	Forget(ctx context.Context, entityName string) error

	// SyncSchema reconciles physical tables with discovered descriptors.
	// Implementations only create and widen, never drop or narrow.
	SyncSchema(ctx context.Context, opts SyncOptions) error

	// Exec runs a raw SQL statement.
	Exec(ctx context.Context, stmt string, args ...any) error

	// Session forks a read-only entity-level query session.
	Session(opts SessionOptions) (Session, error)

	// SQLSession forks a read-only raw SQL query session.
	SQLSession(opts SessionOptions) (SQLSession, error)

	// Close releases the engine and its connections.
	Close(ctx context.Context) error
}

// Migrator is an optional engine capability. Engines that support versioned
// migrations additionally implement it; the registry discovers it with a type
// assertion and reports MigratorUnavailable when absent.
type Migrator interface {
	// MigrationsTable returns the current migration bookkeeping table name.
	MigrationsTable() string

	// SetMigrationsTable redirects migration bookkeeping to another table.
	SetMigrationsTable(name string)

	// MigrateUp applies all pending up migrations.
	MigrateUp(ctx context.Context) error

	// MigrateDown rolls back the most recently applied migrations. A steps
	// value of zero rolls back everything.
	MigrateDown(ctx context.Context, steps int) error
}

// SyncOptions controls a schema synchronization pass.
type SyncOptions struct {
	// Entities restricts the pass to the named entities. Empty means the
	// whole discovered catalog.
	Entities []string
}

// SessionOptions configures a forked query session.
type SessionOptions struct {
	// Label optionally tags the session for logging.
	Label string
}

// Session is a read-only fork for entity-level queries. Sessions never pass
// through the registry's serial executor, so any number may be used
// concurrently.
type Session interface {
	// Select reads up to limit rows of an entity. A limit of zero means no
	// limit.
	Select(ctx context.Context, entityName string, limit int) ([]map[string]any, error)

	// Close releases the session.
	Close() error
}

// SQLSession is a read-only fork for raw SQL queries.
type SQLSession interface {
	// Query runs a raw SQL query and materializes the result rows.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)

	// Close releases the session.
	Close() error
}
