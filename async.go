// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Async is a cross-thread wakeup handle: any goroutine may call Send, and
// cb fires once on the loop thread for every batch of sends that arrive
// between two dispatches. Multiple Sends that race ahead of the loop
// picking them up coalesce into a single callback invocation, exactly as
// libuv's uv_async_send documents ("it's not guaranteed every call leads
// to a separate invocation").
//
// The coalescing is the same is_sending/wakePending dedup pattern the
// engine itself uses for its wake channel, generalized here into a typed
// per-handle wakeup instead of one shared loop-wide signal.
type Async struct {
	*HandleBase

	cont    *Continuation[struct{}]
	pending atomic.Bool
	sentAt  atomic.Int64 // UnixNano of the Send that set pending; 0 = none
}

// NewAsync creates an Async handle bound to loop. cb runs on the loop
// thread whenever Send has been called at least once since the previous
// dispatch.
func (l *Loop) NewAsync(cb func(*Async)) *Async {
	a := &Async{}
	a.HandleBase = newHandleBase(l, "async", func() {})
	if cb != nil {
		a.cont = NewContinuation1Self(nil, a, cb)
	}
	return a
}

// Send requests a dispatch of cb on the loop thread. Safe to call from any
// goroutine, including the loop thread itself (in which case the dispatch
// is still queued and runs at a later queue drain, never recursing into cb
// synchronously). Returns ErrAsyncClosed if the handle has begun closing,
// or ErrLoopExpired if the owning loop has been collected.
func (a *Async) Send() error {
	if !a.Active() {
		return ErrAsyncClosed
	}
	loop := a.Loop()
	if loop == nil {
		return ErrLoopExpired
	}
	if !a.pending.CompareAndSwap(false, true) {
		// A send is already in flight and not yet dispatched; this call
		// coalesces into it.
		return nil
	}
	a.sentAt.Store(time.Now().UnixNano())
	return loop.engine.Submit(reactorTask(func() { a.dispatch() }))
}

func (a *Async) dispatch() {
	if !a.pending.CompareAndSwap(true, false) {
		return
	}
	loop := a.Loop()
	if loop == nil {
		return
	}
	if m := loop.metrics; m != nil {
		if sentAt := a.sentAt.Swap(0); sentAt != 0 {
			m.AsyncDispatch.Observe(time.Since(time.Unix(0, sentAt)))
		}
	}
	if !a.Active() || a.cont == nil {
		return
	}
	_, err := a.cont.Dispatch()
	a.logDispatchError(err)
}

// AsyncTyped is the typed counterpart of Async, parameterized over the
// argument type T and the result type R: Send carries an argument to the
// loop thread and hands back a Future for the callback's result. Unlike
// the untyped Async (which only coalesces a bare wakeup), each Send call
// gets its own result Future, so the coalescing discipline applies only
// to the underlying engine wakeup, not to how many times cb actually
// runs: every queued argument is delivered to cb exactly once, in send
// order, the first time the loop thread drains the queue after that Send.
type AsyncTyped[T, R any] struct {
	*HandleBase

	cb func(*AsyncTyped[T, R], T) (R, error)

	mu      sync.Mutex
	pending atomic.Bool
	queue   []asyncSend[R]
}

type asyncSend[R any] struct {
	cont   *Continuation[R]
	sentAt time.Time
}

// NewAsyncTypedHandle creates a typed Async handle bound to loop, exposed as
// a package-level function (as with ScheduleFunc/QueueWork) since a method
// cannot introduce new type parameters. cb runs on the loop thread once per
// Send call (in send order), receiving the argument passed to Send and
// settling that call's returned Future with cb's result or error.
func NewAsyncTypedHandle[T, R any](l *Loop, cb func(*AsyncTyped[T, R], T) (R, error)) *AsyncTyped[T, R] {
	a := &AsyncTyped[T, R]{cb: cb}
	a.HandleBase = newHandleBase(l, "async", func() {})
	return a
}

// Send delivers arg to cb on the loop thread and returns a Future resolving
// to cb's result. Safe to call from any goroutine, including the loop
// thread itself. Returns a rejected Future if the handle has begun closing
// or the owning loop has been collected.
func (a *AsyncTyped[T, R]) Send(arg T) *Future[R] {
	if !a.Active() {
		return RejectedFuture[R](a.Loop(), ErrAsyncClosed)
	}
	loop := a.Loop()
	if loop == nil {
		return RejectedFuture[R](nil, ErrLoopExpired)
	}
	if a.cb == nil {
		return RejectedFuture[R](loop, ErrNotImplemented)
	}

	// Each Send binds its argument into a continuation with its own result
	// slot; the Future observing that slot is what the caller gets back.
	cont := NewContinuation(loop, func() (R, error) { return a.cb(a, arg) })
	fut := cont.Future()

	a.mu.Lock()
	a.queue = append(a.queue, asyncSend[R]{cont: cont, sentAt: time.Now()})
	a.mu.Unlock()

	// Test-and-set is_sending: only the sender that transitions pending
	// false->true actually wakes the engine. A Send that loses the race
	// still queued its entry above, so the in-flight dispatch (or the one
	// it schedules next) will pick it up: a losing Send either rides the
	// current dispatch or the next one, never a missed one.
	if a.pending.CompareAndSwap(false, true) {
		if err := loop.engine.Submit(reactorTask(a.dispatch)); err != nil {
			a.drainQueue(err)
		}
	}
	return fut
}

// DeferSend behaves like Send, but the engine wakeup is deferred until the
// returned Future is first subscribed to (via ToChannel, Then, ThenFuture
// or Flatten); State, Value and Err do not trigger it. Future has no
// blocking Get, so the deferral point is subscription rather than a
// synchronous getter call.
func (a *AsyncTyped[T, R]) DeferSend(arg T) *Future[R] {
	if !a.Active() {
		return RejectedFuture[R](a.Loop(), ErrAsyncClosed)
	}
	fut, resolve, reject := NewFuture[R](a.Loop())
	var once sync.Once
	armed := func() {
		once.Do(func() {
			inner := a.Send(arg)
			inner.subscribe(func(st FutureState, v any, err error) {
				if st == Rejected {
					reject(err)
					return
				}
				val, _ := v.(R)
				resolve(val)
			})
		})
	}
	fut.deferredArm = armed
	return fut
}

func (a *AsyncTyped[T, R]) dispatch() {
	if !a.pending.CompareAndSwap(true, false) {
		return
	}
	a.mu.Lock()
	batch := a.queue
	a.queue = nil
	a.mu.Unlock()

	closed := !a.Active()
	loop := a.Loop()
	var m *Metrics
	if loop != nil {
		m = loop.metrics
		if len(batch) > 0 {
			loop.logger.Debug("async dispatch", map[string]any{"kind": a.Kind(), "batch": len(batch)})
		}
	}

	for _, s := range batch {
		if closed {
			s.cont.Abort(ErrAsyncClosed)
			continue
		}
		if loop == nil {
			s.cont.Abort(ErrLoopExpired)
			continue
		}
		if m != nil {
			m.AsyncDispatch.Observe(time.Since(s.sentAt))
		}
		// An ordinary cb error belongs to the sender's Future alone; only a
		// recovered panic is also worth a loop-side trace.
		if _, err := s.cont.Dispatch(); err != nil {
			var pe PanicError
			if errors.As(err, &pe) {
				a.logDispatchError(err)
			}
		}
	}
}

func (a *AsyncTyped[T, R]) drainQueue(err error) {
	a.mu.Lock()
	batch := a.queue
	a.queue = nil
	a.pending.Store(false)
	a.mu.Unlock()
	if len(batch) > 0 {
		if l := a.Loop(); l != nil {
			l.logger.Warn("async sends dropped", map[string]any{"kind": a.Kind(), "dropped": len(batch), "error": err.Error()})
		}
	}
	for _, s := range batch {
		s.cont.Abort(err)
	}
}
