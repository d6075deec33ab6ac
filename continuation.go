// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import "sync"

// Continuation binds a user callback to a result slot (a promise and the
// Future observing it) and dispatches it with panic isolation: every
// Request, Work item, and typed handle event invokes application code only
// through a Continuation, so a misbehaving callback can never escape onto
// the loop thread as an unrecovered panic, and every dispatch outcome is
// observable through a Future.
//
// The result slot is re-created on every Init (and after every Dispatch,
// which arms the slot for the next invocation). A Future taken before a
// Dispatch stays valid afterwards: it observes the outcome of the dispatch
// that was armed when it was taken.
//
// Rather than reflecting over a callback's signature at runtime to decide
// how to invoke it, the package provides one constructor per arity and
// lets Go's type inference do the rest: NewContinuation for a callback
// returning a result, NewContinuation0 for a niladic callback,
// NewContinuation1Self for a callback that receives the owning
// handle/request, NewContinuation1 for a callback that receives a single
// typed argument, and NewContinuationN for the two-argument (self, value)
// case.
type Continuation[R any] struct {
	call func() (R, error)

	mu      sync.Mutex
	loop    *Loop
	fut     *Future[R]
	resolve func(R)
	reject  func(error)
}

// NewContinuation wraps a result-returning callback. loop may be nil; it
// only seeds the Futures the continuation hands out.
func NewContinuation[R any](loop *Loop, call func() (R, error)) *Continuation[R] {
	c := &Continuation[R]{call: call, loop: loop}
	c.Init()
	return c
}

// NewContinuation0 wraps a niladic callback.
func NewContinuation0(loop *Loop, fn func()) *Continuation[struct{}] {
	return NewContinuation(loop, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

// NewContinuation1Self wraps a callback that receives only the handle or
// request that triggered it.
func NewContinuation1Self[S any](loop *Loop, self S, fn func(S)) *Continuation[struct{}] {
	return NewContinuation(loop, func() (struct{}, error) {
		fn(self)
		return struct{}{}, nil
	})
}

// NewContinuation1 wraps a callback receiving a single typed value.
func NewContinuation1[V any](loop *Loop, val V, fn func(V)) *Continuation[struct{}] {
	return NewContinuation(loop, func() (struct{}, error) {
		fn(val)
		return struct{}{}, nil
	})
}

// NewContinuationN wraps a callback receiving both the owning self value
// and a result value, the shape Signal and completion callbacks use.
func NewContinuationN[S, V any](loop *Loop, self S, val V, fn func(S, V)) *Continuation[struct{}] {
	return NewContinuation(loop, func() (struct{}, error) {
		fn(self, val)
		return struct{}{}, nil
	})
}

// Init re-creates the result slot: a fresh promise and Future for the next
// Dispatch. The replaced slot is never settled: Futures handed out before
// an Init stay Pending.
func (c *Continuation[R]) Init() {
	c.mu.Lock()
	c.fut, c.resolve, c.reject = NewFuture[R](c.loop)
	c.mu.Unlock()
}

// Future returns the Future observing the outcome of the next Dispatch.
func (c *Continuation[R]) Future() *Future[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fut
}

// Dispatch invokes the callback, settles the current result slot with its
// value or error (a recovered panic surfaces as a PanicError), and arms a
// fresh slot for the next dispatch.
func (c *Continuation[R]) Dispatch() (R, error) {
	c.mu.Lock()
	resolve, reject := c.resolve, c.reject
	c.fut, c.resolve, c.reject = NewFuture[R](c.loop)
	c.mu.Unlock()

	result, err := c.run()
	if err != nil {
		reject(err)
	} else {
		resolve(result)
	}
	return result, err
}

// Abort settles the current result slot with err without running the
// callback, then arms a fresh slot. Used when a queued dispatch is dropped
// because its handle closed or its loop went away.
func (c *Continuation[R]) Abort(err error) {
	c.mu.Lock()
	reject := c.reject
	c.fut, c.resolve, c.reject = NewFuture[R](c.loop)
	c.mu.Unlock()
	reject(err)
}

func (c *Continuation[R]) run() (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		}
	}()
	return c.call()
}
