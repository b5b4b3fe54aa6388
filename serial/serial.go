/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package serial provides a reentrant FIFO execution queue used to serialize
// catalog and engine mutations against one shared state.
package serial

import (
	"context"
	"sync"
)

type tokenKey struct{}

type waiter struct {
	turn      chan struct{}
	abandoned bool
}

// Executor admits at most one task at a time, in arrival order. A task runs
// with an execution token in its context; a nested Run carrying the same
// executor's token executes inline instead of queueing, so composite
// operations that call back into exclusive entry points never deadlock on
// themselves.
//
// The zero value is ready to use.
type Executor struct {
	mu      sync.Mutex
	busy    bool
	waiters []*waiter
}

// Run executes fn with exclusive access. Calls queue in FIFO order; a call
// made from inside an already-running task of the same executor runs
// immediately. The context is only consulted while waiting for a turn —
// once fn starts it runs to completion.
func (e *Executor) Run(ctx context.Context, fn func(context.Context) error) error {
	if held, ok := ctx.Value(tokenKey{}).(*Executor); ok && held == e {
		return fn(ctx)
	}

	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	return fn(context.WithValue(ctx, tokenKey{}, e))
}

// Held reports whether ctx already carries this executor's execution token.
func (e *Executor) Held(ctx context.Context) bool {
	held, ok := ctx.Value(tokenKey{}).(*Executor)
	return ok && held == e
}

func (e *Executor) acquire(ctx context.Context) error {
	e.mu.Lock()
	if !e.busy {
		e.busy = true
		e.mu.Unlock()
		return nil
	}
	w := &waiter{turn: make(chan struct{})}
	e.waiters = append(e.waiters, w)
	e.mu.Unlock()

	select {
	case <-w.turn:
		return nil
	case <-ctx.Done():
		e.mu.Lock()
		select {
		case <-w.turn:
			// The turn was granted while cancellation raced in; hand it on.
			e.mu.Unlock()
			e.release()
		default:
			w.abandoned = true
			e.mu.Unlock()
		}
		return ctx.Err()
	}
}

func (e *Executor) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.waiters) > 0 {
		next := e.waiters[0]
		e.waiters = e.waiters[1:]
		if next.abandoned {
			continue
		}
		close(next.turn)
		return
	}
	e.busy = false
}
