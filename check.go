// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

// Check fires once per loop iteration, immediately after the poll phase.
// Typically paired with a Prepare handle to bracket the time the loop
// spent polling for events.
type Check struct {
	*HandleBase
	id   HookID
	cont *Continuation[struct{}]
}

// NewCheck creates and starts a Check handle bound to loop. The handle is
// fully wired (base state, continuation) before the engine hook goes live,
// and the hook list itself is mutex-guarded, so NewCheck is safe to call
// from any goroutine even while the loop is running.
func (l *Loop) NewCheck(cb func(*Check)) *Check {
	h := &Check{}
	eng := l.engine
	h.HandleBase = newHandleBase(l, "check", func() {
		eng.RemoveCheckHook(h.id)
	})
	if cb != nil {
		h.cont = NewContinuation1Self(nil, h, cb)
	}
	h.id = eng.AddCheckHook(func() { h.fire() })
	return h
}

func (h *Check) fire() {
	if !h.Active() || h.cont == nil {
		return
	}
	_, err := h.cont.Dispatch()
	h.logDispatchError(err)
}
