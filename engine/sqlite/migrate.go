/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const defaultMigrationsTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// MigratingEngine is an Engine opened with a migration source. It adds the
// engine.Migrator capability: versioned .sql files applied at most once each,
// tracked in a configurable bookkeeping table so scoped callers can redirect
// tracking into their own namespace.
type MigratingEngine struct {
	*Engine

	migrationFS   fs.FS
	migrationRoot string

	mu              sync.Mutex
	migrationsTable string
}

// MigrationsTable returns the current bookkeeping table name.
func (m *MigratingEngine) MigrationsTable() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migrationsTable
}

// SetMigrationsTable redirects bookkeeping to another table. An empty name
// restores the default.
func (m *MigratingEngine) SetMigrationsTable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		name = defaultMigrationsTable
	}
	m.migrationsTable = name
}

// MigrateUp applies every pending up migration in file name order.
func (m *MigratingEngine) MigrateUp(ctx context.Context) error {
	table := m.MigrationsTable()
	if err := m.ensureMigrationsTable(ctx, table); err != nil {
		return err
	}

	files, err := m.migrationFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		applied, err := m.isApplied(ctx, table, file)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied {
			continue
		}

		content, err := m.readMigration(file)
		if err != nil {
			return err
		}
		upSQL := extractSection(content, upMarker)
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		if err := m.applyInTx(ctx, file, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, upSQL); err != nil {
				if !isAlreadyExistsError(err) {
					return fmt.Errorf("exec migration %s: %w", file, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf("INSERT OR IGNORE INTO %s (name, applied_at) VALUES (?, ?)", quoteIdent(table)),
				file, time.Now().UTC().UnixMilli())
			if err != nil {
				return fmt.Errorf("record migration %s: %w", file, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migrations in reverse
// order. A steps value of zero rolls back everything.
func (m *MigratingEngine) MigrateDown(ctx context.Context, steps int) error {
	table := m.MigrationsTable()
	if err := m.ensureMigrationsTable(ctx, table); err != nil {
		return err
	}

	applied, err := m.appliedMigrations(ctx, table)
	if err != nil {
		return err
	}
	if steps > 0 && steps < len(applied) {
		applied = applied[:steps]
	}

	for _, file := range applied {
		content, err := m.readMigration(file)
		if err != nil {
			return err
		}
		downSQL := extractSection(content, downMarker)

		if err := m.applyInTx(ctx, file, func(tx *sql.Tx) error {
			if strings.TrimSpace(downSQL) != "" {
				if _, err := tx.ExecContext(ctx, downSQL); err != nil {
					return fmt.Errorf("exec down migration %s: %w", file, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE name = ?", quoteIdent(table)), file)
			if err != nil {
				return fmt.Errorf("unrecord migration %s: %w", file, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MigratingEngine) ensureMigrationsTable(ctx context.Context, table string) error {
	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`, quoteIdent(table))
	if _, err := m.sqlDB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table %q: %w", table, err)
	}
	return nil
}

func (m *MigratingEngine) migrationFiles() ([]string, error) {
	root := strings.TrimSpace(m.migrationRoot)
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(m.migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (m *MigratingEngine) readMigration(file string) (string, error) {
	root := strings.TrimSpace(m.migrationRoot)
	if root == "" {
		root = "."
	}
	content, err := fs.ReadFile(m.migrationFS, filepath.ToSlash(filepath.Join(root, file)))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", file, err)
	}
	return string(content), nil
}

func (m *MigratingEngine) isApplied(ctx context.Context, table, name string) (bool, error) {
	var found int
	row := m.sqlDB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE name = ?", quoteIdent(table)), name)
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *MigratingEngine) appliedMigrations(ctx context.Context, table string) ([]string, error) {
	rows, err := m.sqlDB.QueryContext(ctx,
		fmt.Sprintf("SELECT name FROM %s ORDER BY applied_at DESC, name DESC", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return names, nil
}

func (m *MigratingEngine) applyInTx(ctx context.Context, file string, fn func(tx *sql.Tx) error) error {
	tx, err := m.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction %s: %w", file, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// extractSection returns the SQL between marker and the next section marker.
func extractSection(content, marker string) string {
	idx := strings.Index(content, marker)
	if idx == -1 {
		if marker == upMarker {
			// Files without section markers are treated as up-only.
			if strings.Contains(content, downMarker) {
				return ""
			}
			return content
		}
		return ""
	}
	rest := content[idx+len(marker):]
	if next := strings.Index(rest, "-- +migrate "); next != -1 {
		rest = rest[:next]
	}
	return rest
}

// isAlreadyExistsError reports whether this error indicates idempotent DDL
// success.
func isAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}
