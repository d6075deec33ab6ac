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

// Loop is the cooperative, single-threaded event loop: the application
// object wrapping an internal/reactor.Engine with a handle registry,
// worker pool, and logging/metrics, and exposing the typed handle/request
// factory methods application code uses.
//
// Only one goroutine drives a Loop at a time (affinity, established by
// whichever goroutine last called Run/RunOnce/RunForever); all handle and
// request operations are safe to call from any goroutine and marshal
// themselves onto that affinity thread as needed.
type Loop struct {
	engine   *reactor.Engine
	registry *registry
	workers  *workerPool
	metrics  *Metrics
	logger   Logger
	opts     *loopOptions

	runMu   sync.Mutex
	running bool
}

// NewLoop constructs a Loop configured by opts.
func NewLoop(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	e := reactor.New()
	e.SetLogFunc(reactorLogFunc(cfg.logger))

	l := &Loop{
		engine:   e,
		registry: newRegistry(),
		workers:  newWorkerPool(workerCount()),
		metrics:  newMetrics(cfg.metrics),
		logger:   cfg.logger,
		opts:     cfg,
	}
	return l, nil
}

var defaultLoop = sync.OnceValues(func() (*Loop, error) {
	return NewLoop()
})

// DefaultLoop returns a process-wide default Loop, constructed lazily on
// first use and shared by any caller that doesn't need an isolated loop.
func DefaultLoop() (*Loop, error) { return defaultLoop() }

// Metrics returns the loop's latency trackers, or nil if WithMetrics was
// not enabled.
func (l *Loop) Metrics() *Metrics { return l.metrics }

// Logger returns the loop's configured Logger.
func (l *Loop) Logger() Logger { return l.logger }

// Workers reports the resolved size of the loop's goroutine worker pool
// (see workerCount), the Go stand-in for libuv's UV_THREADPOOL_SIZE.
func (l *Loop) Workers() int { return l.workers.size }

// IsLoopThread reports whether the calling goroutine is the loop's
// current affinity thread.
func (l *Loop) IsLoopThread() bool { return l.engine.IsLoopThread() }

// ActiveHandles returns the number of currently active handles.
func (l *Loop) ActiveHandles() int64 { return l.engine.ActiveHandles() }

// Schedule submits fn for execution on the loop thread from any
// goroutine, waking the loop if it is sleeping. This is the general
// cross-thread task submission primitive every handle's Send/Queue
// ultimately goes through.
func (l *Loop) Schedule(fn func()) error {
	return l.engine.Submit(reactorTask(fn))
}

// ScheduleFunc is the future-returning form of Schedule (a package-level
// function, since Go methods cannot introduce new type parameters): it
// submits fn onto the loop thread from any goroutine and returns a
// Future resolving to fn's result, matching a
// `schedule(f, args…) -> shared_future<R>` contract.
func ScheduleFunc[R any](l *Loop, fn func() (R, error)) *Future[R] {
	fut, resolve, reject := NewFuture[R](l)
	run := func() {
		defer func() {
			if r := recover(); r != nil {
				reject(PanicError{Value: r})
			}
		}()
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}
	if err := l.engine.Submit(reactorTask(run)); err != nil {
		reject(err)
	}
	return fut
}

// RunOnce processes exactly one iteration: prepare hooks, due timers,
// queued tasks, idle hooks, the poll, then check hooks. When no idle hook
// is registered and nothing is queued, the poll blocks until a wakeup or
// the next timer deadline (at most 10 seconds).
func (l *Loop) RunOnce() (int, error) {
	l.runMu.Lock()
	l.running = true
	l.runMu.Unlock()
	defer func() {
		l.runMu.Lock()
		l.running = false
		l.runMu.Unlock()
	}()
	return l.engine.Run(reactor.RunOnce)
}

// RunNoWait processes one iteration without blocking at all, returning
// immediately if there is no pending work.
func (l *Loop) RunNoWait() (int, error) {
	return l.engine.Run(reactor.RunNoWait)
}

// Run drives the loop until it has no more active handles or pending
// work, or Stop is called. This is the libuv UV_RUN_DEFAULT equivalent.
func (l *Loop) Run() (int, error) {
	l.runMu.Lock()
	l.running = true
	l.runMu.Unlock()
	defer func() {
		l.runMu.Lock()
		l.running = false
		l.runMu.Unlock()
	}()
	return l.engine.Run(reactor.RunDefault)
}

// RunForever repeatedly runs single non-blocking iterations, sleeping
// opts.defaultSleep between rounds, until Stop is called or stop is
// closed. This is the long-lived-process pattern most libuv consumers use
// instead of a single UV_RUN_DEFAULT invocation: a loop with no active
// handles would otherwise return immediately, and per-iteration stepping
// keeps the stop channel observed within one sleep interval even while
// handles remain active.
func (l *Loop) RunForever(stop <-chan struct{}) error {
	var sleepDebt time.Duration
	for {
		select {
		case <-stop:
			return nil
		case <-l.engine.Done():
			return nil
		default:
		}
		if _, err := l.RunNoWait(); err != nil {
			return err
		}
		sleep := l.opts.defaultSleep
		if l.opts.detractSleep {
			sleep -= sleepDebt
			if sleep < 0 {
				sleep = 0
			}
		}
		sleptFrom := time.Now()
		select {
		case <-stop:
			return nil
		case <-l.engine.Done():
			return nil
		case <-time.After(sleep):
		}
		if l.opts.detractSleep {
			// Carry any oversleep forward so the average cadence tracks
			// defaultSleep even when the OS timer overshoots.
			sleepDebt = time.Since(sleptFrom) - sleep
			if sleepDebt < 0 {
				sleepDebt = 0
			}
		}
	}
}

// Stop requests the loop terminate at the next safe point: the current
// tick finishes, any remaining queued tasks drain, and every tracked
// handle is force-closed.
func (l *Loop) Stop() {
	l.engine.Stop()
	l.registry.closeAll()
	l.workers.shutdown()
}

// Done returns a channel closed once the loop has fully terminated after
// Stop.
func (l *Loop) Done() <-chan struct{} { return l.engine.Done() }

// ScavengeHandles runs one batch of the handle registry's scavenger,
// forgetting handles that were garbage collected by the application
// without an explicit Close. Typically wired to an Idle or Timer handle
// rather than called directly.
func (l *Loop) ScavengeHandles(batchSize int) {
	if n := l.registry.scavenge(batchSize); n > 0 {
		l.logger.Debug("handle registry scavenged", map[string]any{"forgotten": n})
	}
}
