// Package reactor implements the single-threaded cooperative scheduler that
// backs uv.Loop: an affinity-checked task queue, a timer heap, and ordered
// prepare/idle/check hook lists consulted once per tick.
package reactor

import "sync/atomic"

// State is the lifecycle state of an Engine.
type State uint32

const (
	// StateAwake is the initial state: created, never run.
	StateAwake State = iota
	// StateRunning is actively processing hooks, timers and queued tasks.
	StateRunning
	// StateSleeping is blocked waiting for the next wakeup or timer deadline.
	StateSleeping
	// StateTerminating has been asked to stop but may still be draining.
	StateTerminating
	// StateTerminated is fully stopped; no further work is accepted.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwake:
		return "awake"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// fastState is a lock-free state machine: pure CAS, no transition
// validation beyond what callers enforce.
type fastState struct {
	v atomic.Uint32
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint32(StateAwake))
	return s
}

func (s *fastState) Load() State { return State(s.v.Load()) }

func (s *fastState) Store(v State) { s.v.Store(uint32(v)) }

func (s *fastState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
