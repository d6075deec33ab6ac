// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import "github.com/novacrazy/uvgo/internal/reactor"

// HookID identifies a registered prepare/idle/check hook for removal.
type HookID = reactor.HookID

// Idle fires once per loop iteration, unconditionally, after the queued
// tasks have drained and before the poll phase. While any Idle handle is
// registered the poll does not block, so the loop keeps iterating.
type Idle struct {
	*HandleBase
	id   HookID
	cont *Continuation[struct{}]
}

// NewIdle creates and starts an Idle handle bound to loop, invoking cb on
// every loop iteration. The handle is fully wired
// (base state, continuation) before the engine hook goes live, and the
// hook list itself is mutex-guarded, so NewIdle is safe to call from any
// goroutine even while the loop is running.
func (l *Loop) NewIdle(cb func(*Idle)) *Idle {
	h := &Idle{}
	eng := l.engine
	h.HandleBase = newHandleBase(l, "idle", func() {
		eng.RemoveIdleHook(h.id)
	})
	if cb != nil {
		h.cont = NewContinuation1Self(nil, h, cb)
	}
	h.id = eng.AddIdleHook(func() { h.fire() })
	return h
}

func (h *Idle) fire() {
	if !h.Active() || h.cont == nil {
		return
	}
	_, err := h.cont.Dispatch()
	h.logDispatchError(err)
}
