// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync"
	"weak"
)

// Handle is the common lifecycle every typed handle (Idle, Prepare, Check,
// Timer, Signal, Async) satisfies: uninitialized, active, closing, and
// finally closed, matching libuv's uv_handle_t state machine.
type Handle interface {
	// Kind returns the handle's type name, e.g. "timer", "async".
	Kind() string

	// Active reports whether the handle is currently registered with the
	// loop and will fire.
	Active() bool

	// Close begins shutting the handle down and returns a Future that
	// resolves once teardown has completed on the loop thread. It is
	// idempotent: every call after the first returns a Future already
	// rejected with ErrClosedAlready. onClose, if non-nil, runs just
	// before the Future resolves.
	Close(onClose func()) *Future[struct{}]

	// Stop is an alias of Close(nil) for call sites that only want to
	// silence the handle, returning the rejection reason (if any) instead
	// of the Future.
	Stop() error
}

// HandleBase implements the bookkeeping shared by every typed handle:
// registration with the owning Loop's registry, the closing/closed
// transition, and the stop callback run exactly once. Typed handles embed
// HandleBase and supply their own Start/Stop semantics around it.
//
// The owning Loop is held weakly, both here and in the HandleData block,
// so a handle never keeps a dropped Loop alive: once the application's
// last Loop reference is gone and the Loop is collected, every upcall on a
// surviving handle reports ErrLoopExpired instead of touching freed state.
type HandleBase struct {
	mu   sync.Mutex
	data *HandleData
	loop weak.Pointer[Loop]
	kind string
	stop func() // engine-side teardown, e.g. cancel a timer or hook
}

func newHandleBase(loop *Loop, kind string, stop func()) *HandleBase {
	hd := &HandleData{kind: kind, owner: weak.Make(loop)}
	hd.setState(handleActive)
	loop.registry.register(hd)
	loop.engine.IncActive()
	loop.logger.Debug("handle created", map[string]any{"kind": kind, "id": hd.id})

	hb := &HandleBase{data: hd, loop: weak.Make(loop), kind: kind, stop: stop}
	hd.onClose = stop
	return hb
}

// Kind returns the handle's type name.
func (h *HandleBase) Kind() string { return h.kind }

// Active reports whether the handle has not yet been closed.
func (h *HandleBase) Active() bool {
	return h.data.State() == handleActive
}

// Loop returns the owning Loop, or nil if it has been garbage collected.
func (h *HandleBase) Loop() *Loop { return h.loop.Value() }

// logDispatchError reports a recovered callback panic through the owning
// loop's logger; dispatch already rerouted the panic into the result slot,
// so this is the only trace it leaves on the loop side.
func (h *HandleBase) logDispatchError(err error) {
	if err == nil {
		return
	}
	if l := h.Loop(); l != nil {
		l.logger.Warn("handle callback panicked", map[string]any{"kind": h.kind, "error": err.Error()})
	}
}

// runSync executes fn on the loop thread and waits for it to complete,
// running it inline when already called from that thread, or when the loop
// has never run (construction phase, no affinity thread exists yet). Used
// by handle operations (Timer.Again, Timer.DueIn) that must touch
// loop-owned state such as the timer heap but need a synchronous result
// back. Returns ErrWrongThread when the operation can no longer be
// marshalled onto the loop thread (the engine has terminated).
func (l *Loop) runSync(fn func()) error {
	if l.engine.IsLoopThread() || !l.engine.HasEverRun() {
		fn()
		return nil
	}
	done := make(chan struct{})
	task := reactorTask(func() {
		fn()
		close(done)
	})
	if err := l.engine.SubmitInternal(task); err != nil {
		return ErrWrongThread
	}
	<-done
	return nil
}

// Close transitions the handle through closing to closed, invoking the
// engine-side teardown and then onClose exactly once, and returns a Future
// resolving after both have run on the loop thread. Safe to call from any
// goroutine. Repeat calls return a Future already rejected with
// ErrClosedAlready; if the owning Loop has been collected the handle is
// torn down locally and the Future rejects with ErrLoopExpired.
func (h *HandleBase) Close(onClose func()) *Future[struct{}] {
	h.mu.Lock()
	if h.data.State() != handleActive {
		h.mu.Unlock()
		return RejectedFuture[struct{}](h.Loop(), ErrClosedAlready)
	}
	h.data.setState(handleClosing)
	h.mu.Unlock()

	loop := h.Loop()
	if loop == nil {
		h.data.markClosed(h.stop)
		return RejectedFuture[struct{}](nil, ErrLoopExpired)
	}

	fut, resolve, _ := NewFuture[struct{}](loop)
	teardown := func() {
		h.data.markClosed(h.stop)
		if onClose != nil {
			onClose()
		}
		resolve(struct{}{})
	}
	if err := loop.engine.SubmitInternal(reactorTask(teardown)); err != nil {
		teardown()
	}
	return fut
}

// Stop is an alias of Close(nil), reporting only the immediate rejection
// reason (already closed, loop expired) and not teardown completion.
func (h *HandleBase) Stop() error {
	fut := h.Close(nil)
	if fut.State() == Rejected {
		return fut.Err()
	}
	return nil
}
