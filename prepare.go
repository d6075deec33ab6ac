// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

// Prepare fires once per loop iteration, at the start of the iteration,
// before due timers, queued tasks, idle hooks and the poll phase run.
// Typically used to prepare state that the upcoming poll/check pass
// depends on.
type Prepare struct {
	*HandleBase
	id   HookID
	cont *Continuation[struct{}]
}

// NewPrepare creates and starts a Prepare handle bound to loop. The handle
// is fully wired (base state, continuation) before the engine hook goes
// live, and the hook list itself is mutex-guarded, so NewPrepare is safe
// to call from any goroutine even while the loop is running.
func (l *Loop) NewPrepare(cb func(*Prepare)) *Prepare {
	h := &Prepare{}
	eng := l.engine
	h.HandleBase = newHandleBase(l, "prepare", func() {
		eng.RemovePrepareHook(h.id)
	})
	if cb != nil {
		h.cont = NewContinuation1Self(nil, h, cb)
	}
	h.id = eng.AddPrepareHook(func() { h.fire() })
	return h
}

func (h *Prepare) fire() {
	if !h.Active() || h.cont == nil {
		return
	}
	_, err := h.cont.Dispatch()
	h.logDispatchError(err)
}
