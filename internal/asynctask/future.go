// Package asynctask provides the terminal execution primitives shared by
// every façade in this module (cipher, hash, compress, jwt, key, vault,
// pqcrypto). Every CPU-bound operation is dispatched through Spawn, which
// runs the work on a goroutine backed by a bounded worker pool and hands
// the caller a single-use Future. Streaming operations use NewStream,
// which feeds a bounded channel from a background producer goroutine.
//
// This mirrors the "typestate builder → terminal .action().await" shape
// from spec.md §4.D: Go has no async/await, so the terminal call is a
// plain blocking Await, but the spawn-then-channel discipline — and its
// cancellation semantics — are preserved exactly.
package asynctask

import (
	"context"
	"sync"
)

// pool bounds the number of concurrently in-flight blocking computations so
// that a burst of façade calls cannot exhaust OS threads. Sized generously;
// callers that need backpressure should bound concurrency themselves.
var pool = make(chan struct{}, 256)

func acquire() { pool <- struct{}{} }
func release() { <-pool }

// Future is the single-use result of a spawned computation. Await may be
// called any number of times; only the first call blocks on the
// underlying work, subsequent calls return the cached result. This
// matches spec.md's "subsequent polls after completion return pending,
// never panic, never complete twice" by making repeated Await calls
// idempotent rather than re-entrant into the channel.
type Future[T any] struct {
	mu     sync.Mutex
	done   bool
	result T
	err    error
	ch     chan result[T]
}

type result[T any] struct {
	value T
	err   error
}

// Spawn runs fn on a pool-bounded goroutine and returns a Future observing
// its result. fn is expected to be CPU-bound (AEAD, hashing, KDF, PQ
// keygen, large compression) — exactly the set of operations spec.md §5
// says must run off the cooperative scheduler.
func Spawn[T any](ctx context.Context, fn func() (T, error)) *Future[T] {
	f := &Future[T]{ch: make(chan result[T], 1)}
	go func() {
		acquire()
		defer release()

		// Respect cancellation only at the boundary: once fn starts it runs to
		// completion (spec.md §5 cancellation model — the spawned task is never
		// killed mid-flight, only its result may go unobserved).
		select {
		case <-ctx.Done():
			f.ch <- result[T]{err: ctx.Err()}
			return
		default:
		}
		v, err := fn()
		f.ch <- result[T]{value: v, err: err}
	}()
	return f
}

// Await blocks until the spawned computation completes and returns its
// result. Safe to call from multiple goroutines and safe to call more
// than once.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return f.result, f.err
	}
	select {
	case r, ok := <-f.ch:
		if !ok {
			// Sender dropped without sending — spec.md: "future completes with
			// an internal error."
			var zero T
			f.result, f.err = zero, errSenderDropped
			f.done = true
			return f.result, f.err
		}
		f.result, f.err = r.value, r.err
		f.done = true
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

var errSenderDropped = &senderDroppedError{}

type senderDroppedError struct{}

func (*senderDroppedError) Error() string { return "asynctask: sender dropped without a result" }
