// Package future provides a single-assignment result container.
//
// A Future is created when an event is sent and resolved by whichever
// service handles it. Readers block until the value arrives. The first
// Resolve wins and every later Resolve is ignored, so a value observed by
// Get never changes afterwards.
//
// There is no way to cancel a Future. A caller that gives up simply stops
// waiting, typically by using GetTimeout or Wait with a context.
package future

import (
	"context"
	"sync"
	"time"
)

// Future holds the eventual result of one asynchronous operation.
// The zero value is not usable; create futures with New.
type Future[T any] struct {
	mu       sync.Mutex
	value    T
	resolved bool
	done     chan struct{}
}

// New creates an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve stores value and wakes every blocked reader.
// Only the first call has an effect; it reports whether this call won.
func (f *Future[T]) Resolve(value T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolved {
		return false
	}
	f.value = value
	f.resolved = true
	close(f.done)
	return true
}

// IsDone reports whether the future has been resolved. It never blocks.
func (f *Future[T]) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Done returns a channel that is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the future is resolved and returns its value.
//
// If nobody ever resolves the future, Get blocks forever. Use GetTimeout
// or Wait when the resolver may go away.
func (f *Future[T]) Get() T {
	<-f.done
	return f.load()
}

// GetTimeout waits up to timeout for the value. The boolean is false when
// the window elapsed first. A resolved zero value and a timeout can only be
// told apart through that boolean.
func (f *Future[T]) GetTimeout(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		if f.IsDone() {
			return f.load(), true
		}
		var zero T
		return zero, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.load(), true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Wait blocks until the future is resolved or ctx ends, in which case
// ctx.Err() is returned.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.load(), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) load() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}
