// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"time"
)

// Work offloads a blocking computation onto the loop's goroutine worker
// pool (the idiomatic substitute for libuv's uv_queue_work threadpool),
// and resolves a Future[R] with its result back on the loop thread. The
// two-phase completion (worker claims ACTIVE, after-work transitions to
// FINISHED) keeps resolution single-owner by mediating it through
// SubmitInternal back onto the loop thread.
type Work[R any] struct {
	*Request
	future  *Future[R]
	resolve func(R)
	reject  func(error)
}

// QueueWork submits fn to run on a worker goroutine, the idiomatic
// function-based substitute for a generic Loop.Queue[R] method (Go
// methods cannot introduce new type parameters). The returned Work's
// Future resolves to fn's result, or rejects with ErrCancelled if
// cancelled before a worker claimed it, or with fn's own panic wrapped as
// a PanicError.
func QueueWork[R any](l *Loop, fn func() (R, error)) *Work[R] {
	w := newWork[R](l)
	w.start(l, fn)
	return w
}

// DeferQueueWork behaves like QueueWork, except the pool submission itself
// is deferred until the returned Work's Future is first subscribed to (via
// ToChannel, Then, ThenFuture or Flatten; State, Value and Err do not
// trigger it): constructing the Work
// has no side effects until something actually awaits it. Cancelling
// before first observation wins; the eventual observation then rejects
// with ErrCancelled without fn ever running.
func DeferQueueWork[R any](l *Loop, fn func() (R, error)) *Work[R] {
	w := newWork[R](l)
	w.future.deferredArm = func() { w.start(l, fn) }
	return w
}

func newWork[R any](l *Loop) *Work[R] {
	req := newRequest(l)
	fut, resolve, reject := NewFuture[R](l)
	return &Work[R]{Request: req, future: fut, resolve: resolve, reject: reject}
}

func (w *Work[R]) start(l *Loop, fn func() (R, error)) {
	req, resolve, reject := w.Request, w.resolve, w.reject

	if err := req.submit(); err != nil {
		if req.Status() == RequestCancelled {
			reject(ErrCancelled)
			return
		}
		reject(err)
		return
	}

	l.logger.Debug("work queued", nil)
	queuedAt := time.Now()
	l.workers.submit(func() {
		prior := req.claimActive()
		if prior == RequestCancelled {
			_ = l.engine.SubmitInternal(reactorTask(func() {
				// claimActive unconditionally swapped in ACTIVE; restore
				// CANCELLED since the job never actually ran.
				req.status.Store(uint32(RequestCancelled))
				l.logger.Debug("work cancelled before claim", nil)
				reject(ErrCancelled)
			}))
			return
		}

		if l.metrics != nil {
			l.metrics.WorkQueueWait.Observe(time.Since(queuedAt))
		}

		result, err := runWork(fn)

		_ = l.engine.SubmitInternal(reactorTask(func() {
			req.finish()
			if err != nil {
				l.logger.Warn("work failed", map[string]any{"error": err.Error()})
				reject(err)
				return
			}
			l.logger.Debug("work finished", nil)
			resolve(result)
		}))
	})
}

// runWork invokes fn, recovering a panic as a PanicError so a failing
// worker callback can never crash the pool goroutine.
func runWork[R any](fn func() (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		}
	}()
	return fn()
}

// Future returns the Future tracking this Work's result.
func (w *Work[R]) Future() *Future[R] { return w.future }
