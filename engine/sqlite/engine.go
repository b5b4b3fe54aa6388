/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/suparena/entityscope/engine"
	"github.com/suparena/entityscope/schema"
	_ "modernc.org/sqlite"
)

// Config configures an embedded SQLite engine.
type Config struct {
	// Path is the database file path, or ":memory:" for an in-memory
	// database.
	Path string
	// Migrations optionally holds versioned .sql migration files. When set,
	// the opened engine implements the engine.Migrator capability.
	Migrations fs.FS
	// MigrationRoot is the directory inside Migrations holding the .sql
	// files. Empty means the FS root.
	MigrationRoot string
	// Options carries extra DSN query parameters passed through verbatim.
	Options map[string]string
}

// Engine implements engine.Engine over an embedded SQLite database.
//
// A single database file backs every dynamically registered entity, so the
// registry layered on top must guarantee table names never collide; the
// engine itself only reconciles descriptors with physical tables.
type Engine struct {
	sqlDB *sql.DB

	mu          sync.RWMutex
	descriptors map[string]*schema.Descriptor
}

// Open opens an embedded SQLite engine. When cfg.Migrations is set the
// returned engine additionally implements engine.Migrator.
func Open(cfg Config) (engine.Engine, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	sqlDB, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	eng := &Engine{
		sqlDB:       sqlDB,
		descriptors: make(map[string]*schema.Descriptor),
	}
	if cfg.Migrations == nil {
		return eng, nil
	}
	return &MigratingEngine{
		Engine:          eng,
		migrationFS:     cfg.Migrations,
		migrationRoot:   cfg.MigrationRoot,
		migrationsTable: defaultMigrationsTable,
	}, nil
}

func dsn(cfg Config) string {
	params := url.Values{}
	if cfg.Path != ":memory:" {
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "NORMAL")
	}
	params.Set("_foreign_keys", "ON")
	params.Set("_busy_timeout", "5000")
	for k, v := range cfg.Options {
		params.Set(k, v)
	}

	path := cfg.Path
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	return path + "?" + params.Encode()
}

// DB returns the raw database handle for callers that outgrow the narrow
// engine surface.
func (e *Engine) DB() *sql.DB {
	if e == nil {
		return nil
	}
	return e.sqlDB
}

// Discover records an entity descriptor. An already-known entity name is an
// error unless reset is set, in which case the descriptor is replaced.
func (e *Engine) Discover(ctx context.Context, desc *schema.Descriptor, reset bool) error {
	if desc == nil {
		return fmt.Errorf("descriptor is required")
	}
	if desc.EntityName == "" || desc.TableName == "" {
		return fmt.Errorf("descriptor for %q is missing an entity or table name", desc.EntityName)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.descriptors[desc.EntityName]; exists && !reset {
		return fmt.Errorf("entity %q is already discovered", desc.EntityName)
	}
	e.descriptors[desc.EntityName] = desc.Clone()
	return nil
}

// Forget drops the engine's metadata for an entity. The physical table is
// untouched.
func (e *Engine) Forget(ctx context.Context, entityName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.descriptors, entityName)
	return nil
}

// SyncSchema creates missing tables and adds missing columns and indexes for
// the discovered descriptors. It never drops tables or columns.
func (e *Engine) SyncSchema(ctx context.Context, opts engine.SyncOptions) error {
	for _, desc := range e.snapshot(opts.Entities) {
		if err := e.syncEntity(ctx, desc); err != nil {
			return fmt.Errorf("sync entity %q: %w", desc.EntityName, err)
		}
	}
	return nil
}

// Exec runs a raw SQL statement.
func (e *Engine) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := e.sqlDB.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Session forks a read-only entity-level session over the shared handle.
func (e *Engine) Session(opts engine.SessionOptions) (engine.Session, error) {
	return &session{engine: e}, nil
}

// SQLSession forks a read-only raw SQL session over the shared handle.
func (e *Engine) SQLSession(opts engine.SessionOptions) (engine.SQLSession, error) {
	return &sqlSession{sqlDB: e.sqlDB}, nil
}

// Close closes the underlying database.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.sqlDB.Close(); err != nil {
		return fmt.Errorf("close sqlite db: %w", err)
	}
	return nil
}

func (e *Engine) snapshot(only []string) []*schema.Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*schema.Descriptor
	if len(only) > 0 {
		for _, name := range only {
			if desc, ok := e.descriptors[name]; ok {
				out = append(out, desc)
			}
		}
	} else {
		for _, desc := range e.descriptors {
			out = append(out, desc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityName < out[j].EntityName })
	return out
}

func (e *Engine) descriptorFor(entityName string) (*schema.Descriptor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	desc, ok := e.descriptors[entityName]
	return desc, ok
}

func (e *Engine) syncEntity(ctx context.Context, desc *schema.Descriptor) error {
	exists, err := e.tableExists(ctx, desc.TableName)
	if err != nil {
		return err
	}

	if !exists {
		if _, err := e.sqlDB.ExecContext(ctx, createTableSQL(desc)); err != nil {
			return fmt.Errorf("create table %q: %w", desc.TableName, err)
		}
	} else if err := e.addMissingColumns(ctx, desc); err != nil {
		return err
	}

	for _, idx := range desc.Indexes {
		if _, err := e.sqlDB.ExecContext(ctx, createIndexSQL(desc.TableName, idx)); err != nil {
			return fmt.Errorf("create index %q on %q: %w", idx.Name, desc.TableName, err)
		}
	}
	return nil
}

func (e *Engine) tableExists(ctx context.Context, table string) (bool, error) {
	var name string
	row := e.sqlDB.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("inspect table %q: %w", table, err)
	}
	return true, nil
}

func (e *Engine) addMissingColumns(ctx context.Context, desc *schema.Descriptor) error {
	rows, err := e.sqlDB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(desc.TableName)))
	if err != nil {
		return fmt.Errorf("table_info %q: %w", desc.TableName, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			deflt      sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &deflt, &primaryKey); err != nil {
			return fmt.Errorf("scan table_info %q: %w", desc.TableName, err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("table_info %q: %w", desc.TableName, err)
	}

	for _, col := range desc.Columns {
		if existing[col.Name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			quoteIdent(desc.TableName), addColumnDef(col))
		if _, err := e.sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %q to %q: %w", col.Name, desc.TableName, err)
		}
	}
	return nil
}

func createTableSQL(desc *schema.Descriptor) string {
	var pk []string
	for _, col := range desc.Columns {
		if col.PrimaryKey {
			pk = append(pk, quoteIdent(col.Name))
		}
	}

	var defs []string
	for _, col := range desc.Columns {
		def := quoteIdent(col.Name) + " " + col.Type
		if col.PrimaryKey && len(pk) == 1 {
			def += " PRIMARY KEY"
		}
		if col.NotNull {
			def += " NOT NULL"
		}
		if col.Default != "" {
			def += " DEFAULT " + col.Default
		}
		defs = append(defs, def)
	}
	if len(pk) > 1 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(desc.TableName), strings.Join(defs, ", "))
}

// addColumnDef builds a column definition safe for ALTER TABLE on a
// populated table: SQLite rejects adding a NOT NULL column without a
// default, so the constraint is kept only when a default accompanies it.
func addColumnDef(col schema.Column) string {
	def := quoteIdent(col.Name) + " " + col.Type
	if col.Default != "" {
		if col.NotNull {
			def += " NOT NULL"
		}
		def += " DEFAULT " + col.Default
	}
	return def
}

func createIndexSQL(table string, idx schema.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = quoteIdent(c)
	}
	// Index names are relative to the table; namespacing them with the
	// physical table name keeps renamed entities from colliding.
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, quoteIdent(table+"_"+idx.Name), quoteIdent(table), strings.Join(cols, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
