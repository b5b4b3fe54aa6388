/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityscope

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/suparena/entityscope/config"
	"github.com/suparena/entityscope/engine"
	"github.com/suparena/entityscope/engine/sqlite"
	scoperrors "github.com/suparena/entityscope/errors"
	"github.com/suparena/entityscope/schema"
)

// Registry is the scope-isolated entity registry facade. Any number of
// facade instances may be constructed for one logical service; instances
// sharing a (root, serviceID) pair converge on the same shared state and
// the same engine.
type Registry struct {
	state *sharedState
}

// Option configures a Registry's shared state. Options take effect only for
// the facade instance that creates the state; later instances converging on
// an existing state inherit its configuration.
type Option func(*sharedState)

// WithLogger sets the structured log sink. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *sharedState) { s.logger = logger }
}

// WithConfig supplies engine configuration up front instead of loading it
// from the environment at first use.
func WithConfig(cfg *config.Config) Option {
	return func(s *sharedState) { s.cfg = cfg }
}

// WithEngineOpener overrides how the underlying engine is constructed.
func WithEngineOpener(opener EngineOpener) Option {
	return func(s *sharedState) { s.opener = opener }
}

// WithLifecycle binds the service to the hosting runtime's teardown scope:
// once the engine initializes, a Stop hook is registered so the host tearing
// down releases the engine and the catalog.
func WithLifecycle(lifecycle Lifecycle) Option {
	return func(s *sharedState) { s.lifecycle = lifecycle }
}

// DefaultEngineOpener opens the embedded SQLite engine from configuration.
func DefaultEngineOpener(cfg *config.Config) (engine.Engine, error) {
	return sqlite.Open(sqlite.Config{
		Path:    cfg.Path,
		Options: cfg.Options,
	})
}

// New returns a facade for the logical service identified by (root,
// serviceID) within states. The pair is a stable identity: facades built
// twice for the same pair share one engine, one catalog, and one executor.
func New(states *StateRegistry, root, serviceID string, opts ...Option) *Registry {
	state := states.stateFor(root, serviceID, func(s *sharedState) {
		for _, opt := range opts {
			opt(s)
		}
	})
	return &Registry{state: state}
}

// ORM returns the shared engine, initializing it on first use.
func (r *Registry) ORM(ctx context.Context) (engine.Engine, error) {
	return r.state.ensureEngine(ctx)
}

// Ready initializes the engine if needed and reports whether the service is
// usable.
func (r *Registry) Ready(ctx context.Context) error {
	_, err := r.state.ensureEngine(ctx)
	return err
}

// Session forks an isolated entity-level query session. Sessions are plain
// reads and never enter the serial executor.
func (r *Registry) Session(ctx context.Context, opts engine.SessionOptions) (engine.Session, error) {
	eng, err := r.state.ensureEngine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.Session(opts)
}

// SQLSession forks an isolated raw SQL query session.
func (r *Registry) SQLSession(ctx context.Context, opts engine.SessionOptions) (engine.SQLSession, error) {
	eng, err := r.state.ensureEngine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.SQLSession(opts)
}

// Exclusive runs fn with exclusive catalog and engine access. Nested
// exclusive calls made from inside fn run inline.
func (r *Registry) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.state.executor.Run(ctx, fn)
}

// DiscoverEntity hands an already-namespaced descriptor straight to the
// engine, bypassing scope prefixing. Intended for ambient infrastructure
// entities owned by the host itself.
func (r *Registry) DiscoverEntity(ctx context.Context, desc *schema.Descriptor) error {
	return r.state.executor.Run(ctx, func(ctx context.Context) error {
		eng, err := r.state.ensureEngine(ctx)
		if err != nil {
			return err
		}
		return eng.Discover(ctx, desc, false)
	})
}

// EnsureSchemaOptions controls a schema synchronization request.
type EnsureSchemaOptions struct {
	// Entities restricts the pass to the named entities. Empty means the
	// whole catalog.
	Entities []string
}

// EnsureSchema requests a safe, non-destructive schema synchronization for
// the catalog.
func (r *Registry) EnsureSchema(ctx context.Context, opts EnsureSchemaOptions) error {
	return r.state.executor.Run(ctx, func(ctx context.Context) error {
		eng, err := r.state.ensureEngine(ctx)
		if err != nil {
			return err
		}
		return eng.SyncSchema(ctx, engine.SyncOptions{Entities: opts.Entities})
	})
}

// Stop tears the service down: teardown hooks run, the engine closes, and
// the catalog is cleared. A stopped service may be started again by the next
// operation that touches the engine.
func (r *Registry) Stop(ctx context.Context) error {
	return r.state.stop(ctx)
}

// Scope returns the per-caller registry surface for an explicit scope key.
func (r *Registry) Scope(key string) *Scoped {
	return &Scoped{state: r.state, key: key}
}

// ScopeFromContext resolves the immediate caller's identity from ctx, as
// placed there by the hosting runtime via WithCaller. It is the identity of
// the direct registrant that determines the namespace, not any deeper
// caller a registry reference may have been forwarded from.
func (r *Registry) ScopeFromContext(ctx context.Context) (*Scoped, error) {
	key, ok := CallerFromContext(ctx)
	if !ok {
		return nil, scoperrors.NewMissingCallerContextError("Scope")
	}
	return r.Scope(key), nil
}
