/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides mock implementations of the Engine interface for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/entityscope/engine"
	"github.com/suparena/entityscope/schema"
)

// Engine is a mock implementation of engine.Engine for testing. It records
// discovered descriptors, synced tables, and executed statements so tests
// can assert on the traffic the registry produced.
type Engine struct {
	mu          sync.RWMutex
	descriptors map[string]*schema.Descriptor
	synced      map[string]bool
	execLog     []string

	discoverErr error
	syncErr     error
	execErr     error
	closeErr    error
	closed      bool
}

// New creates a new mock Engine
func New() *Engine {
	return &Engine{
		descriptors: make(map[string]*schema.Descriptor),
		synced:      make(map[string]bool),
	}
}

// WithDiscoverError makes Discover operations return an error
func (m *Engine) WithDiscoverError(err error) *Engine {
	m.discoverErr = err
	return m
}

// WithSyncError makes SyncSchema operations return an error
func (m *Engine) WithSyncError(err error) *Engine {
	m.syncErr = err
	return m
}

// WithExecError makes Exec operations return an error
func (m *Engine) WithExecError(err error) *Engine {
	m.execErr = err
	return m
}

// WithCloseError makes Close return an error
func (m *Engine) WithCloseError(err error) *Engine {
	m.closeErr = err
	return m
}

// Discover records the descriptor under its entity name.
func (m *Engine) Discover(ctx context.Context, desc *schema.Descriptor, reset bool) error {
	if m.discoverErr != nil {
		return m.discoverErr
	}
	if desc == nil {
		return fmt.Errorf("descriptor is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.descriptors[desc.EntityName]; exists && !reset {
		return fmt.Errorf("entity %q is already discovered", desc.EntityName)
	}
	m.descriptors[desc.EntityName] = desc.Clone()
	return nil
}

// Forget removes the descriptor for the entity.
func (m *Engine) Forget(ctx context.Context, entityName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.descriptors, entityName)
	return nil
}

// SyncSchema marks the selected entities' tables as synced.
func (m *Engine) SyncSchema(ctx context.Context, opts engine.SyncOptions) error {
	if m.syncErr != nil {
		return m.syncErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(opts.Entities) > 0 {
		for _, name := range opts.Entities {
			if desc, ok := m.descriptors[name]; ok {
				m.synced[desc.TableName] = true
			}
		}
		return nil
	}
	for _, desc := range m.descriptors {
		m.synced[desc.TableName] = true
	}
	return nil
}

// Exec appends the statement to the exec log.
func (m *Engine) Exec(ctx context.Context, stmt string, args ...any) error {
	if m.execErr != nil {
		return m.execErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execLog = append(m.execLog, stmt)
	return nil
}

// Session returns a session over the recorded descriptors.
func (m *Engine) Session(opts engine.SessionOptions) (engine.Session, error) {
	return &mockSession{engine: m}, nil
}

// SQLSession returns a session whose queries always yield no rows.
func (m *Engine) SQLSession(opts engine.SessionOptions) (engine.SQLSession, error) {
	return &mockSQLSession{engine: m}, nil
}

// Close marks the engine closed.
func (m *Engine) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

// Discovered reports whether an entity is currently discovered.
func (m *Engine) Discovered(entityName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.descriptors[entityName]
	return ok
}

// DescriptorFor returns the recorded descriptor for an entity.
func (m *Engine) DescriptorFor(entityName string) (*schema.Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	desc, ok := m.descriptors[entityName]
	return desc, ok
}

// DiscoveredCount returns the number of discovered entities.
func (m *Engine) DiscoveredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.descriptors)
}

// SyncedTables returns the sorted set of tables touched by SyncSchema.
func (m *Engine) SyncedTables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tables := make([]string, 0, len(m.synced))
	for t := range m.synced {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// ExecLog returns the raw statements run through Exec, in order.
func (m *Engine) ExecLog() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.execLog))
	copy(out, m.execLog)
	return out
}

// Closed reports whether Close was called.
func (m *Engine) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

type mockSession struct {
	engine *Engine
}

func (s *mockSession) Select(ctx context.Context, entityName string, limit int) ([]map[string]any, error) {
	if !s.engine.Discovered(entityName) {
		return nil, fmt.Errorf("entity %q is not discovered", entityName)
	}
	return nil, nil
}

func (s *mockSession) Close() error { return nil }

type mockSQLSession struct {
	engine *Engine
}

func (s *mockSQLSession) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	s.engine.mu.Lock()
	s.engine.execLog = append(s.engine.execLog, query)
	s.engine.mu.Unlock()
	return nil, nil
}

func (s *mockSQLSession) Close() error { return nil }
