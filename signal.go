// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"os/signal"
	"sync"
)

// Signal delivers OS signal notifications onto the loop thread. There is
// no idiomatic ecosystem replacement for os/signal, since it is the only
// binding into the runtime's signal machinery, so unlike the rest of the
// framework's domain stack this handle is built directly on the standard
// library; only the human-readable name lookup (signalName, in
// signalname_unix.go/signalname_windows.go) is sourced from a third-party
// package.
type Signal struct {
	*HandleBase

	mu   sync.Mutex
	ch   chan os.Signal
	done chan struct{}
	cb   func(*Signal, os.Signal)
	sigs []os.Signal
}

// NewSignal creates a Signal handle bound to loop that invokes cb on the
// loop thread whenever one of sigs is received.
func (l *Loop) NewSignal(cb func(*Signal, os.Signal), sigs ...os.Signal) *Signal {
	s := &Signal{
		cb:   cb,
		sigs: sigs,
		ch:   make(chan os.Signal, 8),
		done: make(chan struct{}),
	}
	signal.Notify(s.ch, sigs...)

	s.HandleBase = newHandleBase(l, "signal", func() {
		signal.Stop(s.ch)
		close(s.done)
	})

	go s.pump()
	return s
}

func (s *Signal) pump() {
	for {
		select {
		case sig := <-s.ch:
			if !s.Active() {
				return
			}
			loop := s.Loop()
			if loop == nil {
				return
			}
			if err := loop.engine.Submit(reactorTask(func() { s.dispatch(sig) })); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Signal) dispatch(sig os.Signal) {
	if !s.Active() {
		return
	}
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb == nil {
		return
	}
	// The signal number varies per delivery, so the argument tuple is
	// bound fresh each fire rather than stored at construction.
	_, err := NewContinuationN(nil, s, sig, cb).Dispatch()
	s.logDispatchError(err)
}

// Name returns a human-readable name for sig, e.g. "SIGINT".
func Name(sig os.Signal) string { return signalName(sig) }
