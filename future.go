// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"strings"
	"sync"

	"github.com/novacrazy/uvgo/internal/reactor"
)

func reactorTask(run func()) reactor.Task { return reactor.Task{Runnable: run} }

// FutureState mirrors the classic PromiseState lifecycle: a Future starts
// Pending and settles exactly once, either Resolved or Rejected.
type FutureState int32

const (
	Pending FutureState = iota
	Resolved
	Rejected
)

// awaitable is satisfied by every *Future[T] regardless of T, letting
// Flatten detect at runtime when a settled value is itself a Future and
// keep unwrapping, since Go generics cannot express "T may itself be
// Future[U]" as a constraint.
type awaitable interface {
	state() FutureState
	subscribe(onSettle func(FutureState, any, error))
	valid() bool
}

// LaunchPolicy controls how a Then continuation is scheduled relative to the
// settlement that triggers it.
type LaunchPolicy int

const (
	// LaunchDeferred hands the continuation to the owning Loop's internal
	// queue: settled from another goroutine, it is queued and runs on the
	// loop thread; settled on the loop thread, it runs inline inside
	// Resolve/Reject; with no owning Loop it runs synchronously in the
	// settling goroutine. This is the default.
	LaunchDeferred LaunchPolicy = iota

	// LaunchAsync runs the continuation in a fresh goroutine, off the loop
	// thread entirely. Use for continuations that themselves block.
	LaunchAsync

	// LaunchDetached behaves like LaunchDeferred but the resulting Future's
	// own settlement is never awaited by a parent chain; use for
	// fire-and-forget side effects attached to a shared Future.
	LaunchDetached
)

// defaultLaunchPolicy resolves UV_ASYNC_LAUNCH once: "async" or "detached"
// select those policies (case-insensitive); anything else, including unset,
// resolves to LaunchDeferred.
var defaultLaunchPolicy = sync.OnceValue(func() LaunchPolicy {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("UV_ASYNC_LAUNCH"))) {
	case "async":
		return LaunchAsync
	case "detached":
		return LaunchDetached
	default:
		return LaunchDeferred
	}
})

// DefaultLaunchPolicy returns the process-wide default LaunchPolicy,
// resolved from UV_ASYNC_LAUNCH on first use.
func DefaultLaunchPolicy() LaunchPolicy { return defaultLaunchPolicy() }

// ThenDefault is Then using DefaultLaunchPolicy(), the convenience form
// for callers with no specific scheduling need.
func ThenDefault[T, R any](f *Future[T], onFulfilled func(T) (R, error), onRejected func(error) (R, error)) *Future[R] {
	return Then(f, onFulfilled, onRejected, DefaultLaunchPolicy())
}

// Future is a single-assignment container for the result of an operation
// that may still be pending: a chained promise generalized to a typed
// value via Go generics instead of an `any`-typed result.
type Future[T any] struct {
	mu     sync.Mutex
	st     FutureState
	value  T
	err    error
	loop   *Loop
	waiter []func(FutureState, any, error)

	armOnce     sync.Once
	deferredArm func()
}

// NewFuture returns a pending Future along with its resolve/reject
// functions, mirroring NewChainedPromise. loop may be nil, in which case
// Then continuations run with LaunchDeferred degrading to synchronous
// dispatch (there is no loop thread to defer to).
func NewFuture[T any](loop *Loop) (fut *Future[T], resolve func(T), reject func(error)) {
	f := &Future[T]{loop: loop}
	return f, f.resolve, f.reject
}

// ResolvedFuture returns an already-settled Future, useful for Then chains
// that need a synchronous base case.
func ResolvedFuture[T any](loop *Loop, v T) *Future[T] {
	f := &Future[T]{loop: loop, st: Resolved, value: v}
	return f
}

// RejectedFuture returns an already-rejected Future.
func RejectedFuture[T any](loop *Loop, err error) *Future[T] {
	f := &Future[T]{loop: loop, st: Rejected, err: err}
	return f
}

func (f *Future[T]) state() FutureState { return f.State() }

// valid reports whether the receiver is non-nil; callable on a typed nil
// *Future boxed into an interface, where a plain == nil check lies.
func (f *Future[T]) valid() bool { return f != nil }

// State reports the Future's current settlement state.
func (f *Future[T]) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

// Value returns the fulfillment value, or the zero value of T if pending or
// rejected.
func (f *Future[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err returns the rejection reason, or nil if pending or resolved.
func (f *Future[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Future[T]) resolve(v T) {
	f.mu.Lock()
	if f.st != Pending {
		f.mu.Unlock()
		return
	}
	f.st = Resolved
	f.value = v
	waiters := f.waiter
	f.waiter = nil
	f.mu.Unlock()

	for _, w := range waiters {
		w(Resolved, v, nil)
	}
}

func (f *Future[T]) reject(err error) {
	f.mu.Lock()
	if f.st != Pending {
		f.mu.Unlock()
		return
	}
	f.st = Rejected
	f.err = err
	waiters := f.waiter
	f.waiter = nil
	f.mu.Unlock()

	for _, w := range waiters {
		w(Rejected, nil, err)
	}
}

// subscribe registers a settlement callback, invoking it immediately if the
// Future is already settled (the optimistic fast path for an
// already-settled promise).
func (f *Future[T]) subscribe(onSettle func(FutureState, any, error)) {
	if f.deferredArm != nil {
		f.armOnce.Do(f.deferredArm)
	}
	f.mu.Lock()
	if f.st != Pending {
		st, v, err := f.st, any(f.value), f.err
		f.mu.Unlock()
		onSettle(st, v, err)
		return
	}
	f.waiter = append(f.waiter, onSettle)
	f.mu.Unlock()
}

// ToChannel returns a channel that receives the value (zero value on
// rejection; check Err separately) once the Future settles, buffered to 1
// so a settle that races the receiver never blocks.
func (f *Future[T]) ToChannel() <-chan T {
	ch := make(chan T, 1)
	f.subscribe(func(_ FutureState, v any, _ error) {
		if val, ok := v.(T); ok {
			ch <- val
		} else {
			var zero T
			ch <- zero
		}
	})
	return ch
}

func (f *Future[T]) dispatch(policy LaunchPolicy, run func()) {
	if f.loop == nil || policy == LaunchAsync {
		if policy == LaunchAsync {
			go run()
			return
		}
		run()
		return
	}
	_ = f.loop.engine.SubmitInternal(reactorTask(run))
}

// Then attaches onFulfilled/onRejected continuations and returns a new
// Future[R] for the chain. If the callback invoked returns a *Future[R]
// itself (via ThenFuture) its settlement is collapsed into the outer
// Future rather than nesting, the way Promise/A+ thenables unwrap.
func Then[T, R any](f *Future[T], onFulfilled func(T) (R, error), onRejected func(error) (R, error), policy LaunchPolicy) *Future[R] {
	out := &Future[R]{loop: f.loop}

	f.subscribe(func(st FutureState, v any, err error) {
		run := func() {
			var (
				r    R
				rerr error
			)
			switch st {
			case Resolved:
				if onFulfilled != nil {
					val, _ := v.(T)
					r, rerr = onFulfilled(val)
				} else {
					val, _ := v.(T)
					if rv, ok := any(val).(R); ok {
						r = rv
					}
				}
			case Rejected:
				if onRejected != nil {
					r, rerr = onRejected(err)
				} else {
					rerr = err
				}
			}
			if rerr != nil {
				out.reject(rerr)
				return
			}
			out.resolve(r)
		}
		f.dispatch(policy, run)
	})

	return out
}

// Flatten collapses a future whose value is itself a future: the returned
// Future[R] settles once the chain of inner futures has unwrapped down to
// an R. A rejection at any level rejects the result; a nil inner future
// resolves to the zero value of R. Combined with Then this gives the
// future-of-future chaining shape: Then(Flatten(p), g) invokes g with the
// unwrapped value.
func Flatten[R any](f *Future[*Future[R]]) *Future[R] {
	out := &Future[R]{loop: f.loop}

	var settle func(FutureState, any, error)
	settle = func(st FutureState, v any, err error) {
		if st == Rejected {
			out.reject(err)
			return
		}
		// Stop as soon as the settled value is an R, even when R is itself
		// a future type (nested Flatten calls peel one layer each).
		if val, ok := v.(R); ok {
			out.resolve(val)
			return
		}
		if inner, ok := v.(awaitable); ok {
			if !inner.valid() {
				out.resolve(*new(R))
				return
			}
			inner.subscribe(settle)
			return
		}
		out.resolve(*new(R))
	}
	f.subscribe(settle)

	return out
}

// ThenFuture is Then's collapsing counterpart: the callback returns a
// *Future[R] rather than an R directly, and that inner Future's eventual
// settlement becomes the outer Future's settlement. This stands in for
// thenable-unwrapping in resolve(), since Go cannot express "resolve with
// either R or Future[R]" as a single type.
func ThenFuture[T, R any](f *Future[T], onFulfilled func(T) *Future[R], onRejected func(error) *Future[R], policy LaunchPolicy) *Future[R] {
	out := &Future[R]{loop: f.loop}

	collapse := func(inner *Future[R]) {
		if inner == nil {
			out.resolve(*new(R))
			return
		}
		inner.subscribe(func(ist FutureState, iv any, ierr error) {
			if ist == Rejected {
				out.reject(ierr)
				return
			}
			val, _ := iv.(R)
			out.resolve(val)
		})
	}

	f.subscribe(func(st FutureState, v any, err error) {
		run := func() {
			switch st {
			case Resolved:
				val, _ := v.(T)
				if onFulfilled != nil {
					collapse(onFulfilled(val))
				} else {
					out.reject(ErrNotImplemented)
				}
			case Rejected:
				if onRejected != nil {
					collapse(onRejected(err))
				} else {
					out.reject(err)
				}
			}
		}
		f.dispatch(policy, run)
	})

	return out
}
