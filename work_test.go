// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueWork_ResolvesWithResult(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	w := QueueWork(l, func() (int, error) { return 7, nil })

	select {
	case v := <-w.Future().ToChannel():
		if v != 7 {
			t.Fatalf("result = %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Work future never resolved")
	}
	if w.Status() != RequestFinished {
		t.Fatalf("Status() = %v, want RequestFinished", w.Status())
	}
}

// TestQueueWork_ErrorPropagation is scenario S4: a failing callback rejects
// its Future without poisoning the loop thread, and a subsequent Work still
// succeeds.
func TestQueueWork_ErrorPropagation(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	boom := errors.New("boom")
	w1 := QueueWork(l, func() (int, error) { return 0, boom })

	if !waitFor(func() bool { return w1.Future().State() != Pending }, time.Second) {
		t.Fatal("first Work future never settled")
	}
	if w1.Future().State() != Rejected {
		t.Fatalf("State() = %v, want Rejected", w1.Future().State())
	}
	if !errors.Is(w1.Future().Err(), boom) {
		t.Fatalf("Err() = %v, want %v", w1.Future().Err(), boom)
	}

	w2 := QueueWork(l, func() (int, error) { return 7, nil })
	select {
	case v := <-w2.Future().ToChannel():
		if v != 7 {
			t.Fatalf("second Work result = %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("loop thread appears poisoned: second Work never resolved")
	}
}

func TestQueueWork_PanicIsRecoveredAsPanicError(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	w := QueueWork(l, func() (int, error) { panic("kaboom") })

	if !waitFor(func() bool { return w.Future().State() != Pending }, time.Second) {
		t.Fatal("Work future never settled")
	}
	var pe PanicError
	if !errors.As(w.Future().Err(), &pe) {
		t.Fatalf("Err() = %v, not a PanicError", w.Future().Err())
	}
}

// TestQueueWork_CancelBeforeWorkerClaims is the first half of scenario S5:
// cancelling a Request before a worker claims it must resolve to
// ErrCancelled with status CANCELLED. Every worker goroutine is saturated
// with a blocking job first, so the target Work is guaranteed to still be
// PENDING (never dequeued) when Cancel runs.
func TestQueueWork_CancelBeforeWorkerClaims(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	n := workerCount()
	release := make(chan struct{})
	for i := 0; i < n; i++ {
		l.workers.submit(func() { <-release })
	}

	w := QueueWork(l, func() (int, error) { return 9, nil })

	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel() on a still-PENDING request error = %v, want nil", err)
	}
	// Free a worker so it dequeues the now-cancelled job and observes the
	// CANCELLED claim, which is what actually rejects the Future.
	close(release)
	if !waitFor(func() bool { return w.Future().State() != Pending }, time.Second) {
		t.Fatal("cancelled Work future never settled")
	}
	if w.Status() != RequestCancelled {
		t.Fatalf("Status() = %v, want RequestCancelled", w.Status())
	}
	if !errors.Is(w.Future().Err(), ErrCancelled) {
		t.Fatalf("Err() = %v, want ErrCancelled", w.Future().Err())
	}
}

// TestDeferQueueWork_ArmsOnFirstObservation: the pool submission must not
// happen until the Future is observed, and must happen exactly once after
// that.
func TestDeferQueueWork_ArmsOnFirstObservation(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	var ran atomic.Bool
	w := DeferQueueWork(l, func() (int, error) {
		ran.Store(true)
		return 11, nil
	})

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatal("deferred work ran before the Future was observed")
	}
	if w.Status() != RequestIdle {
		t.Fatalf("Status() before observation = %v, want RequestIdle", w.Status())
	}

	select {
	case v := <-w.Future().ToChannel():
		if v != 11 {
			t.Fatalf("result = %d, want 11", v)
		}
	case <-time.After(time.Second):
		t.Fatal("deferred Work future never resolved after observation")
	}
	if !ran.Load() {
		t.Fatal("observation did not trigger the deferred work")
	}
}

// TestDeferQueueWork_CancelBeforeObservation: cancelling an unobserved
// deferred Work wins; the eventual observation rejects with ErrCancelled
// and fn never runs.
func TestDeferQueueWork_CancelBeforeObservation(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	var ran atomic.Bool
	w := DeferQueueWork(l, func() (int, error) {
		ran.Store(true)
		return 11, nil
	})

	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel() on unobserved deferred work error = %v, want nil", err)
	}

	w.Future().subscribe(func(FutureState, any, error) {})
	if !waitFor(func() bool { return w.Future().State() != Pending }, time.Second) {
		t.Fatal("cancelled deferred Work future never settled")
	}
	if !errors.Is(w.Future().Err(), ErrCancelled) {
		t.Fatalf("Err() = %v, want ErrCancelled", w.Future().Err())
	}
	if ran.Load() {
		t.Fatal("cancelled deferred work still ran")
	}
}

// TestQueueWork_CancelAfterActive_FailsWithBusy is the second half of S5:
// cancelling an ACTIVE request fails with BUSY and the work still completes.
func TestQueueWork_CancelAfterActive_FailsWithBusy(t *testing.T) {
	l := mustLoop(t)
	defer driveLoop(l)()

	started := make(chan struct{})
	release := make(chan struct{})
	w := QueueWork(l, func() (int, error) {
		close(started)
		<-release
		return 9, nil
	})

	<-started // worker has claimed ACTIVE by now
	if err := w.Cancel(); err != ErrBusy {
		t.Fatalf("Cancel() on ACTIVE request error = %v, want ErrBusy", err)
	}
	close(release)

	select {
	case v := <-w.Future().ToChannel():
		if v != 9 {
			t.Fatalf("result = %d, want 9", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Work future never resolved after failed cancel")
	}
}
