/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entityscope

import (
	"context"
	"errors"
	"sync"
)

// Disposable represents one releasable resource. Dispose is idempotent:
// releasing an already-released resource is a no-op, not an error. Nothing
// in this package relies on garbage-collector finalization; hosting scopes
// must invoke Dispose on teardown.
type Disposable interface {
	Dispose(ctx context.Context) error
}

// Lifecycle is the hosting runtime's teardown-scope mechanism, consumed but
// not implemented by the registry. Hooks registered through OnTeardown must
// be invoked when the owning scope ends.
type Lifecycle interface {
	OnTeardown(fn func(ctx context.Context) error)
}

// TeardownScope is a minimal Lifecycle implementation for hosts and tests
// without their own scope mechanism. Teardown runs registered hooks in
// reverse registration order and clears them.
type TeardownScope struct {
	mu    sync.Mutex
	hooks []func(ctx context.Context) error
}

// OnTeardown registers a hook to run when the scope ends.
func (s *TeardownScope) OnTeardown(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Teardown runs all registered hooks in reverse order. Every hook runs even
// if earlier ones fail; failures are joined into the returned error.
func (s *TeardownScope) Teardown(ctx context.Context) error {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type callerKey struct{}

// WithCaller returns a context carrying the immediate caller's identity.
// Hosting runtimes set this before handing control to a plugin so scoped
// operations can resolve their namespace without an explicit key.
func WithCaller(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, callerKey{}, key)
}

// CallerFromContext returns the caller identity carried by ctx, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(callerKey{}).(string)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
