// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import "sync/atomic"

// RequestStatus is a set-of-flags (not a plain enum) because claiming the
// ACTIVE slot uses a fetch-and-set rather than a CAS loop, matching the
// original engine's `fetch_and(ACTIVE)` peek-and-claim trick: a worker
// goroutine atomically swaps in ACTIVE and inspects what it replaced
// instead of looping a CompareAndSwap against a specific expected value.
type RequestStatus uint32

const (
	RequestPending   RequestStatus = 0
	RequestIdle      RequestStatus = 1 << 0
	RequestActive    RequestStatus = 1 << 1
	RequestCancelled RequestStatus = 1 << 2
	RequestFinished  RequestStatus = 1 << 3
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestIdle:
		return "idle"
	case RequestActive:
		return "active"
	case RequestCancelled:
		return "cancelled"
	case RequestFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Request is the base state machine of Work (there is no separate
// filesystem request type; Filesystem methods run as Work): one-shot
// operations that move IDLE → PENDING (on submit) → ACTIVE (worker claims
// it) → FINISHED, with CANCELLED reachable only from IDLE or PENDING.
type Request struct {
	status atomic.Uint32
	loop   *Loop
}

func newRequest(loop *Loop) *Request {
	r := &Request{loop: loop}
	r.status.Store(uint32(RequestIdle))
	return r
}

// Status returns the current RequestStatus.
func (r *Request) Status() RequestStatus { return RequestStatus(r.status.Load()) }

// claimActive is the fetch_and(ACTIVE) trick: it unconditionally swaps in
// ACTIVE and returns the value that was replaced, so the caller can tell
// whether it raced another claim (prior == ACTIVE already) without a CAS
// retry loop.
func (r *Request) claimActive() RequestStatus {
	prev := r.status.Swap(uint32(RequestActive))
	return RequestStatus(prev)
}

// finish transitions ACTIVE → FINISHED unconditionally; called from the
// after-work callback on the loop thread regardless of whether the worker
// actually observed the ACTIVE claim, so a Request always reaches a
// terminal state.
func (r *Request) finish() {
	r.status.Store(uint32(RequestFinished))
}

// Cancel attempts to move the request to CANCELLED. This is best-effort:
// cancelling an ACTIVE request fails with ErrBusy since the worker has
// already claimed it, and only IDLE/PENDING requests can be cancelled.
func (r *Request) Cancel() error {
	for {
		cur := RequestStatus(r.status.Load())
		if cur == RequestActive {
			return ErrBusy
		}
		if cur == RequestFinished || cur == RequestCancelled {
			return ErrInvalidState
		}
		if r.status.CompareAndSwap(uint32(cur), uint32(RequestCancelled)) {
			return nil
		}
	}
}

// Reset returns a terminal (FINISHED or CANCELLED) request to IDLE so it
// can be submitted again. Resubmission is deliberately opt-in: a request
// never silently reuses old state, and resetting one that is still
// PENDING or ACTIVE fails with ErrBusy.
func (r *Request) Reset() error {
	for {
		cur := RequestStatus(r.status.Load())
		if cur != RequestFinished && cur != RequestCancelled {
			return ErrBusy
		}
		if r.status.CompareAndSwap(uint32(cur), uint32(RequestIdle)) {
			return nil
		}
	}
}

// submit transitions IDLE → PENDING, the state a Request sits in once
// handed to the threadpool but before a worker has claimed it.
func (r *Request) submit() error {
	if !r.status.CompareAndSwap(uint32(RequestIdle), uint32(RequestPending)) {
		return ErrBusy
	}
	return nil
}
