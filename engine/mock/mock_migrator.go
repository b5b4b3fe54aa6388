/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
	"sync"
)

// MigratingEngine is a mock Engine that also implements engine.Migrator. It
// records which bookkeeping table was in effect for every migration run so
// tests can assert on scope-namespaced migration tracking.
type MigratingEngine struct {
	*Engine

	mu              sync.Mutex
	migrationsTable string
	upRuns          []string
	downRuns        []string
	migrateErr      error
}

// NewMigrating creates a mock Engine with the Migrator capability.
func NewMigrating() *MigratingEngine {
	return &MigratingEngine{
		Engine:          New(),
		migrationsTable: "schema_migrations",
	}
}

// WithMigrateError makes MigrateUp and MigrateDown return an error
func (m *MigratingEngine) WithMigrateError(err error) *MigratingEngine {
	m.migrateErr = err
	return m
}

// MigrationsTable returns the current bookkeeping table name.
func (m *MigratingEngine) MigrationsTable() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migrationsTable
}

// SetMigrationsTable redirects bookkeeping to another table.
func (m *MigratingEngine) SetMigrationsTable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrationsTable = name
}

// MigrateUp records an up run against the current bookkeeping table.
func (m *MigratingEngine) MigrateUp(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upRuns = append(m.upRuns, m.migrationsTable)
	return m.migrateErr
}

// MigrateDown records a down run against the current bookkeeping table.
func (m *MigratingEngine) MigrateDown(ctx context.Context, steps int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downRuns = append(m.downRuns, m.migrationsTable)
	return m.migrateErr
}

// UpRuns returns the bookkeeping tables used by MigrateUp calls, in order.
func (m *MigratingEngine) UpRuns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.upRuns))
	copy(out, m.upRuns)
	return out
}

// DownRuns returns the bookkeeping tables used by MigrateDown calls, in order.
func (m *MigratingEngine) DownRuns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.downRuns))
	copy(out, m.downRuns)
	return out
}
