// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"testing"
)

func TestWrapError_NilCausePassesThrough(t *testing.T) {
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("WrapError(op, nil) = %v, want nil", err)
	}
}

func TestWrapError_UnwrapsToOriginalCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError("queue", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(%v, cause) = false, want true", err)
	}

	want := "uv: queue: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_EmptyOpFormatsBareCause(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Cause: cause}
	if err.Error() != "boom" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "boom")
	}
}

func TestPanicError_UnwrapsErrorValues(t *testing.T) {
	cause := errors.New("from panic")
	pe := PanicError{Value: cause}

	if !errors.Is(pe, cause) {
		t.Fatalf("errors.Is(PanicError, cause) = false, want true")
	}
	if pe.Unwrap() == nil {
		t.Fatalf("Unwrap() = nil, want cause")
	}
}

func TestPanicError_NonErrorValueUnwrapsToNil(t *testing.T) {
	pe := PanicError{Value: "a string panic"}
	if pe.Unwrap() != nil {
		t.Fatalf("Unwrap() = %v, want nil", pe.Unwrap())
	}
	if pe.Error() == "" {
		t.Fatal("Error() returned empty string")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrWrongThread, ErrClosedAlready, ErrLoopExpired, ErrAsyncClosed,
		ErrInvalidState, ErrBusy, ErrCancelled, ErrNotImplemented,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinel %d (%v) unexpectedly matches sentinel %d (%v)", i, a, j, b)
			}
		}
	}
}
