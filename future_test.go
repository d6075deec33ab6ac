// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestResolvedFuture_SettlesImmediately(t *testing.T) {
	f := ResolvedFuture[int](nil, 5)
	if f.State() != Resolved {
		t.Fatalf("State() = %v, want Resolved", f.State())
	}
	if f.Value() != 5 {
		t.Fatalf("Value() = %d, want 5", f.Value())
	}
}

func TestRejectedFuture_SettlesImmediately(t *testing.T) {
	cause := errors.New("nope")
	f := RejectedFuture[int](nil, cause)
	if f.State() != Rejected {
		t.Fatalf("State() = %v, want Rejected", f.State())
	}
	if !errors.Is(f.Err(), cause) {
		t.Fatalf("Err() = %v, want %v", f.Err(), cause)
	}
}

func TestFuture_ResolveIsSingleAssignment(t *testing.T) {
	f, resolve, reject := NewFuture[int](nil)
	resolve(1)
	resolve(2) // ignored: already settled
	reject(errors.New("also ignored"))

	if f.State() != Resolved {
		t.Fatalf("State() = %v, want Resolved", f.State())
	}
	if f.Value() != 1 {
		t.Fatalf("Value() = %d, want 1 (first resolve wins)", f.Value())
	}
}

func TestFuture_ToChannel_DeliversValue(t *testing.T) {
	f, resolve, _ := NewFuture[string](nil)
	ch := f.ToChannel()
	resolve("done")

	select {
	case v := <-ch:
		if v != "done" {
			t.Fatalf("got %q, want %q", v, "done")
		}
	case <-time.After(time.Second):
		t.Fatal("ToChannel never delivered")
	}
}

func TestFuture_ToChannel_SubscribesAfterSettlement(t *testing.T) {
	f := ResolvedFuture[int](nil, 99)
	ch := f.ToChannel()
	select {
	case v := <-ch:
		if v != 99 {
			t.Fatalf("got %d, want 99", v)
		}
	case <-time.After(time.Second):
		t.Fatal("ToChannel on already-settled future never delivered")
	}
}

func TestThen_OnFulfilled_TransformsValue(t *testing.T) {
	f := ResolvedFuture[int](nil, 10)
	out := Then(f, func(v int) (int, error) { return v * 2, nil }, nil, LaunchDeferred)

	select {
	case v := <-out.ToChannel():
		if v != 20 {
			t.Fatalf("got %d, want 20", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Then never settled")
	}
}

func TestThen_OnRejected_RecoversError(t *testing.T) {
	f := RejectedFuture[int](nil, errors.New("boom"))
	out := Then(f, nil, func(err error) (int, error) { return -1, nil }, LaunchDeferred)

	select {
	case v := <-out.ToChannel():
		if v != -1 {
			t.Fatalf("got %d, want -1", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Then never settled")
	}
	if out.State() != Resolved {
		t.Fatalf("State() = %v, want Resolved", out.State())
	}
}

func TestThen_NoRejectionHandler_PropagatesError(t *testing.T) {
	cause := errors.New("boom")
	f := RejectedFuture[int](nil, cause)
	out := Then(f, func(v int) (int, error) { return v, nil }, nil, LaunchDeferred)

	waitSettled(t, out)
	if out.State() != Rejected {
		t.Fatalf("State() = %v, want Rejected", out.State())
	}
	if !errors.Is(out.Err(), cause) {
		t.Fatalf("Err() = %v, want %v", out.Err(), cause)
	}
}

func TestThen_LaunchAsync_RunsOffLoopThread(t *testing.T) {
	f := ResolvedFuture[int](nil, 1)
	doneCh := make(chan struct{})
	out := Then(f, func(v int) (int, error) {
		close(doneCh)
		return v, nil
	}, nil, LaunchAsync)

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("LaunchAsync callback never ran")
	}
	waitSettled(t, out)
}

// TestThenFuture_CollapsesInnerFuture is the generic-future analogue of S6:
// a callback returning a *Future[R] has its settlement collapsed into the
// outer future rather than nesting.
func TestThenFuture_CollapsesInnerFuture(t *testing.T) {
	outer := ResolvedFuture[int](nil, 5)
	collapsed := ThenFuture(outer, func(v int) *Future[int] {
		return ResolvedFuture[int](nil, v+1)
	}, nil, LaunchDeferred)

	select {
	case v := <-collapsed.ToChannel():
		if v != 6 {
			t.Fatalf("got %d, want 6", v)
		}
	case <-time.After(time.Second):
		t.Fatal("ThenFuture never settled")
	}
}

// TestThenFuture_RecursiveCollapse chains through a future-of-future: the
// result must equal the innermost value plus one, fully unwrapped.
func TestThenFuture_RecursiveCollapse(t *testing.T) {
	inner := ResolvedFuture[int](nil, 5)
	outer := ResolvedFuture[*Future[int]](nil, inner)

	collapsed := ThenFuture(outer, func(innerFut *Future[int]) *Future[int] {
		return ResolvedFuture[int](nil, innerFut.Value()+1)
	}, nil, LaunchDeferred)

	select {
	case v := <-collapsed.ToChannel():
		if v != 6 {
			t.Fatalf("got %d, want 6", v)
		}
	case <-time.After(time.Second):
		t.Fatal("recursive collapse never settled")
	}
}

func TestThenFuture_InnerRejectionPropagates(t *testing.T) {
	outer := ResolvedFuture[int](nil, 1)
	cause := errors.New("inner boom")
	collapsed := ThenFuture(outer, func(int) *Future[int] {
		return RejectedFuture[int](nil, cause)
	}, nil, LaunchDeferred)

	waitSettled(t, collapsed)
	if collapsed.State() != Rejected {
		t.Fatalf("State() = %v, want Rejected", collapsed.State())
	}
	if !errors.Is(collapsed.Err(), cause) {
		t.Fatalf("Err() = %v, want %v", collapsed.Err(), cause)
	}
}

// TestDefaultLaunchPolicy_DefaultsToDeferred checks the UV_ASYNC_LAUNCH
// resolution's fallback, valid as long as no earlier test in this binary
// has set the env var before defaultLaunchPolicy's sync.OnceValue first
// runs (none of this package's other tests touch it).
func TestDefaultLaunchPolicy_DefaultsToDeferred(t *testing.T) {
	if _, set := os.LookupEnv("UV_ASYNC_LAUNCH"); set {
		t.Skip("UV_ASYNC_LAUNCH set in environment; skipping default-value assertion")
	}
	if got := DefaultLaunchPolicy(); got != LaunchDeferred {
		t.Fatalf("DefaultLaunchPolicy() = %v, want LaunchDeferred", got)
	}
}

func TestThenDefault_SettlesUsingDefaultPolicy(t *testing.T) {
	f := ResolvedFuture[int](nil, 7)
	out := ThenDefault(f, func(v int) (int, error) { return v + 1, nil }, nil)
	waitSettled(t, out)
	if out.State() != Resolved {
		t.Fatalf("State() = %v, want Resolved", out.State())
	}
	if out.Value() != 8 {
		t.Fatalf("Value() = %d, want 8", out.Value())
	}
}

// TestFlatten_ThenOverNestedFuture is the canonical future-of-future chain:
// Then over a flattened ready(ready(5)) with x+1 must yield 6.
func TestFlatten_ThenOverNestedFuture(t *testing.T) {
	p := ResolvedFuture[*Future[int]](nil, ResolvedFuture[int](nil, 5))
	out := Then(Flatten(p), func(x int) (int, error) { return x + 1, nil }, nil, LaunchDeferred)

	select {
	case v := <-out.ToChannel():
		if v != 6 {
			t.Fatalf("got %d, want 6", v)
		}
	case <-time.After(time.Second):
		t.Fatal("flattened chain never settled")
	}
}

func TestFlatten_UnwrapsArbitraryDepth(t *testing.T) {
	innermost := ResolvedFuture[int](nil, 41)
	middle := ResolvedFuture[*Future[int]](nil, innermost)
	outer := ResolvedFuture[*Future[*Future[int]]](nil, middle)

	// Each Flatten peels one layer; composing them unwraps double nesting.
	flat := Flatten(Flatten(outer))
	waitSettled(t, flat)
	if flat.Value() != 41 {
		t.Fatalf("Value() = %d, want 41", flat.Value())
	}
}

func TestFlatten_PendingInnerSettlesLater(t *testing.T) {
	inner, resolveInner, _ := NewFuture[string](nil)
	p := ResolvedFuture[*Future[string]](nil, inner)

	flat := Flatten(p)
	if flat.State() != Pending {
		t.Fatalf("State() = %v before inner settles, want Pending", flat.State())
	}
	resolveInner("late")
	waitSettled(t, flat)
	if flat.Value() != "late" {
		t.Fatalf("Value() = %q, want %q", flat.Value(), "late")
	}
}

func TestFlatten_InnerRejectionPropagates(t *testing.T) {
	cause := errors.New("inner boom")
	p := ResolvedFuture[*Future[int]](nil, RejectedFuture[int](nil, cause))

	flat := Flatten(p)
	waitSettled(t, flat)
	if flat.State() != Rejected {
		t.Fatalf("State() = %v, want Rejected", flat.State())
	}
	if !errors.Is(flat.Err(), cause) {
		t.Fatalf("Err() = %v, want %v", flat.Err(), cause)
	}
}

func TestFlatten_NilInnerResolvesZeroValue(t *testing.T) {
	p := ResolvedFuture[*Future[int]](nil, nil)
	flat := Flatten(p)
	waitSettled(t, flat)
	if flat.State() != Resolved {
		t.Fatalf("State() = %v, want Resolved", flat.State())
	}
	if flat.Value() != 0 {
		t.Fatalf("Value() = %d, want 0", flat.Value())
	}
}

// waitSettled polls a Future's State to synchronize past LaunchDeferred
// continuations without a real loop thread backing the Future.
func waitSettled[T any](t *testing.T, f *Future[T]) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f.State() != Pending {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("future never settled")
}
