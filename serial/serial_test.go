/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package serial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunMutualExclusion(t *testing.T) {
	var ex Executor
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ex.Run(context.Background(), func(ctx context.Context) error {
				cur := atomic.AddInt32(&active, 1)
				for {
					seen := atomic.LoadInt32(&maxActive)
					if cur <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Run failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Errorf("observed %d concurrent tasks, want 1", got)
	}
}

func TestRunFIFOOrder(t *testing.T) {
	var ex Executor
	var order []int
	var mu sync.Mutex

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = ex.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// Enqueue behind the blocked task one at a time so arrival order is fixed.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		queued := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			close(queued)
			_ = ex.Run(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		<-queued
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("execution order = %v, want FIFO", order)
		}
	}
}

func TestRunReentrantNesting(t *testing.T) {
	var ex Executor
	var depth int

	done := make(chan error, 1)
	go func() {
		done <- ex.Run(context.Background(), func(ctx context.Context) error {
			depth++
			// A nested call from inside the queue must run inline, not queue.
			return ex.Run(ctx, func(ctx context.Context) error {
				depth++
				return ex.Run(ctx, func(ctx context.Context) error {
					depth++
					return nil
				})
			})
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("nested Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nested Run deadlocked")
	}
	if depth != 3 {
		t.Errorf("depth = %d, want 3", depth)
	}
}

func TestRunPropagatesTaskError(t *testing.T) {
	var ex Executor
	want := errors.New("boom")

	got := ex.Run(context.Background(), func(ctx context.Context) error {
		return want
	})
	if !errors.Is(got, want) {
		t.Errorf("Run error = %v, want %v", got, want)
	}

	// The executor must be reusable after a task failure.
	if err := ex.Run(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Run after failure = %v, want nil", err)
	}
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	var ex Executor

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = ex.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- ex.Run(ctx, func(ctx context.Context) error { return nil })
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}

	close(release)

	// The abandoned slot must not wedge later callers.
	done := make(chan error, 1)
	go func() {
		done <- ex.Run(context.Background(), func(ctx context.Context) error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after abandonment = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("executor wedged after abandoned waiter")
	}
}

func TestHeld(t *testing.T) {
	var ex Executor
	var other Executor

	if ex.Held(context.Background()) {
		t.Error("Held should be false outside Run")
	}
	_ = ex.Run(context.Background(), func(ctx context.Context) error {
		if !ex.Held(ctx) {
			t.Error("Held should be true inside Run")
		}
		if other.Held(ctx) {
			t.Error("token must not satisfy a different executor")
		}
		return nil
	})
}
