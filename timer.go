// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync"
	"time"

	"github.com/novacrazy/uvgo/internal/reactor"
)

// Timer fires cb after an initial delay, and then repeatedly every repeat
// interval until closed or stopped. A zero repeat makes it a one-shot.
type Timer struct {
	*HandleBase

	mu     sync.Mutex
	id     reactor.TimerID
	cont   *Continuation[struct{}]
	delay  time.Duration
	repeat time.Duration
}

// NewTimer creates and starts a Timer bound to loop, firing cb after delay
// and then every repeat (0 disables repetition). Negative durations are
// treated as zero, as with the standard library's timers. The heap
// insertion is marshalled onto the loop thread, so NewTimer is safe to
// call from any goroutine even while the loop is running.
func (l *Loop) NewTimer(delay, repeat time.Duration, cb func(*Timer)) *Timer {
	if delay < 0 {
		delay = 0
	}
	if repeat < 0 {
		repeat = 0
	}
	t := &Timer{delay: delay, repeat: repeat}
	eng := l.engine
	t.HandleBase = newHandleBase(l, "timer", func() {
		eng.CancelTimer(t.id)
	})
	if cb != nil {
		t.cont = NewContinuation1Self(nil, t, cb)
	}
	l.runSync(func() {
		t.id = eng.ScheduleTimer(delay, repeat, func(time.Time) { t.fire() })
	})
	return t
}

func (t *Timer) fire() {
	if !t.Active() || t.cont == nil {
		return
	}
	_, err := t.cont.Dispatch()
	t.logDispatchError(err)
}

// Again stops the timer (if running) and reschedules it using its
// repeat interval as the new delay, the behavior libuv's uv_timer_again
// exposes for retry-style rescheduling.
func (t *Timer) Again() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.Active() {
		return ErrClosedAlready
	}
	loop := t.Loop()
	if loop == nil {
		return ErrLoopExpired
	}
	if t.repeat <= 0 {
		return ErrInvalidState
	}
	eng := loop.engine
	return loop.runSync(func() {
		eng.CancelTimer(t.id)
		t.id = eng.ScheduleTimer(t.repeat, t.repeat, func(time.Time) { t.fire() })
	})
}

// DueIn reports the remaining time until the timer's next scheduled fire,
// or false if the timer is not active, its loop is gone, or it has already
// fired and was not repeating.
func (t *Timer) DueIn() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.Active() {
		return 0, false
	}
	loop := t.Loop()
	if loop == nil {
		return 0, false
	}
	var (
		d  time.Duration
		ok bool
	)
	if err := loop.runSync(func() {
		d, ok = loop.engine.TimerDueIn(t.id)
	}); err != nil {
		return 0, false
	}
	return d, ok
}
