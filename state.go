/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityscope

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/suparena/entityscope/config"
	"github.com/suparena/entityscope/engine"
	scoperrors "github.com/suparena/entityscope/errors"
	"github.com/suparena/entityscope/naming"
	"github.com/suparena/entityscope/serial"
)

// EngineOpener constructs the underlying engine from configuration. Hosts
// override it to supply migrations, alternative engines, or test doubles.
type EngineOpener func(cfg *config.Config) (engine.Engine, error)

// StateRegistry owns the shared per-service states. It is an explicit object
// rather than package-level state: the hosting runtime creates one and passes
// it by reference into every facade instance, and facades constructed with
// the same (root, serviceID) pair converge on the same state.
type StateRegistry struct {
	mu     sync.Mutex
	states map[stateKey]*sharedState
}

type stateKey struct {
	root      string
	serviceID string
}

// NewStateRegistry creates an empty state registry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{states: make(map[stateKey]*sharedState)}
}

func (sr *StateRegistry) stateFor(root, serviceID string, seed func(*sharedState)) *sharedState {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	key := stateKey{root: root, serviceID: serviceID}
	if state, ok := sr.states[key]; ok {
		return state
	}
	state := newSharedState(root, serviceID)
	if seed != nil {
		seed(state)
	}
	sr.states[key] = state
	return state
}

// initTask memoizes one in-flight engine initialization.
type initTask struct {
	done chan struct{}
	err  error
}

// sharedState is the single mutable state behind every facade instance of
// one logical service. The engine instance and both catalog maps are owned
// exclusively by this struct and mutated only from inside the executor;
// read-only accessors take the state mutex.
type sharedState struct {
	root      string
	serviceID string

	executor serial.Executor
	logger   zerolog.Logger
	opener   EngineOpener

	lifecycle      Lifecycle
	hookRegistered bool

	initMu sync.Mutex
	task   *initTask

	mu           sync.RWMutex
	cfg          *config.Config
	eng          engine.Engine
	generation   uint64
	entities     map[string]*RegisteredEntity
	tableOwner   map[string]string
	pendingDrops map[string]bool
	prefixCache  map[string]string
	teardowns    []teardownEntry
}

// teardownEntry is one stop-time hook, tagged with the handle that owns it so
// disposal can prune it instead of letting register/dispose churn accumulate
// dead closures until Stop.
type teardownEntry struct {
	owner *Handle
	fn    func(ctx context.Context) error
}

func newSharedState(root, serviceID string) *sharedState {
	return &sharedState{
		root:         root,
		serviceID:    serviceID,
		logger:       zerolog.Nop(),
		opener:       DefaultEngineOpener,
		entities:     make(map[string]*RegisteredEntity),
		tableOwner:   make(map[string]string),
		pendingDrops: make(map[string]bool),
		prefixCache:  make(map[string]string),
	}
}

// prefixFor memoizes the namespace prefix per raw scope key. The cache is a
// pure memoization: a fixed raw key always yields the same prefix.
func (s *sharedState) prefixFor(rawKey string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefix, ok := s.prefixCache[rawKey]; ok {
		return prefix
	}
	prefix := naming.PrefixFor(rawKey)
	s.prefixCache[rawKey] = prefix
	return prefix
}

func (s *sharedState) engine() engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eng
}

// ensureEngine returns the shared engine, initializing it on first use.
// Concurrent callers across facade instances converge on one in-flight
// initialization; a failed attempt clears the memoized task so the next
// caller retries cleanly.
func (s *sharedState) ensureEngine(ctx context.Context) (engine.Engine, error) {
	if eng := s.engine(); eng != nil {
		return eng, nil
	}

	s.initMu.Lock()
	task := s.task
	if task == nil {
		task = &initTask{done: make(chan struct{})}
		s.task = task
		s.initMu.Unlock()

		err := s.doInit(ctx)

		s.initMu.Lock()
		task.err = err
		if err != nil {
			s.task = nil
		}
		close(task.done)
		s.initMu.Unlock()

		if err != nil {
			return nil, err
		}
		return s.engine(), nil
	}
	s.initMu.Unlock()

	select {
	case <-task.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if task.err != nil {
		return nil, task.err
	}

	eng := s.engine()
	if eng == nil {
		// The service was stopped between init completion and this read.
		return nil, scoperrors.NewEngineNotInitializedError("ensureEngine")
	}
	return eng, nil
}

func (s *sharedState) doInit(ctx context.Context) error {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load engine configuration: %w", err)
		}
		cfg = loaded
	}

	eng, err := s.opener(cfg)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}

	// Seeding, parked drops, and engine publication all happen under the
	// state lock. Registrations insert and capture the engine under the same
	// lock, so every entity lands on exactly one side: in this seed pass, or
	// pushed by its registrant against the published engine.
	s.mu.Lock()
	seeded, drops := 0, 0
	for _, rec := range s.entities {
		if err := eng.Discover(ctx, rec.descriptor, true); err != nil {
			s.mu.Unlock()
			_ = eng.Close(ctx)
			return fmt.Errorf("seed entity %q: %w", rec.entityName, err)
		}
		seeded++
	}
	for table := range s.pendingDrops {
		if err := eng.Exec(ctx, dropTableSQL(table)); err != nil {
			s.mu.Unlock()
			_ = eng.Close(ctx)
			return fmt.Errorf("apply pending drop of table %q: %w", table, err)
		}
		drops++
	}
	if cfg.SynchronizeOnStart {
		if err := eng.SyncSchema(ctx, engine.SyncOptions{}); err != nil {
			s.mu.Unlock()
			_ = eng.Close(ctx)
			return fmt.Errorf("synchronize schema on startup: %w", err)
		}
	}
	s.cfg = cfg
	s.eng = eng
	s.pendingDrops = make(map[string]bool)
	registerHook := s.lifecycle != nil && !s.hookRegistered
	if registerHook {
		s.hookRegistered = true
	}
	s.mu.Unlock()

	if registerHook {
		s.lifecycle.OnTeardown(s.stop)
	}

	s.logger.Debug().
		Str("service", s.serviceID).
		Int("seeded", seeded).
		Int("pending_drops", drops).
		Msg("engine initialized")
	return nil
}

// stop tears the service down: teardown hooks run and are cleared, the
// engine is closed, and the engine-bound fields are wiped together with the
// entity catalog — a stopped service has no valid registration state to
// resume from.
func (s *sharedState) stop(ctx context.Context) error {
	return s.executor.Run(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		teardowns := s.teardowns
		s.teardowns = nil
		s.mu.Unlock()

		var errs []error
		for i := len(teardowns) - 1; i >= 0; i-- {
			if err := teardowns[i].fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}

		s.mu.Lock()
		eng := s.eng
		s.eng = nil
		s.cfg = nil
		s.entities = make(map[string]*RegisteredEntity)
		s.tableOwner = make(map[string]string)
		s.pendingDrops = make(map[string]bool)
		s.hookRegistered = false
		s.mu.Unlock()

		s.initMu.Lock()
		s.task = nil
		s.initMu.Unlock()

		if eng != nil {
			if err := eng.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close engine: %w", err))
			}
		}

		s.logger.Debug().Str("service", s.serviceID).Msg("engine stopped")
		return errors.Join(errs...)
	})
}

func (s *sharedState) addTeardown(owner *Handle, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardowns = append(s.teardowns, teardownEntry{owner: owner, fn: fn})
}

func (s *sharedState) removeTeardown(owner *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.teardowns {
		if entry.owner == owner {
			s.teardowns = append(s.teardowns[:i], s.teardowns[i+1:]...)
			return
		}
	}
}

func dropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
