// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"strconv"
	"time"
)

// loopOptions holds configuration resolved from LoopOption values.
type loopOptions struct {
	logger       Logger
	metrics      bool
	defaultSleep time.Duration
	detractSleep bool
}

// LoopOption configures a Loop at construction time.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

type loopOptionFunc func(*loopOptions) error

func (f loopOptionFunc) applyLoop(o *loopOptions) error { return f(o) }

// WithLogger installs a structured Logger. The default is a no-op logger.
func WithLogger(l Logger) LoopOption {
	return loopOptionFunc(func(o *loopOptions) error {
		o.logger = l
		return nil
	})
}

// WithMetrics enables latency tracking (see metrics.go) for Async
// dispatch and Work queue-wait (submission to worker claim) timing.
func WithMetrics(enabled bool) LoopOption {
	return loopOptionFunc(func(o *loopOptions) error {
		o.metrics = enabled
		return nil
	})
}

// WithDefaultSleep overrides the RunForever idle sleep, which otherwise
// defaults to UV_DEFAULT_LOOP_SLEEP (1ms).
func WithDefaultSleep(d time.Duration) LoopOption {
	return loopOptionFunc(func(o *loopOptions) error {
		o.defaultSleep = d
		return nil
	})
}

// WithSleepDetraction makes RunForever track how far each idle sleep
// overshot its target and subtract that debt from the next sleep, keeping
// the average wakeup cadence close to the configured interval on systems
// with coarse timer granularity.
func WithSleepDetraction(enabled bool) LoopOption {
	return loopOptionFunc(func(o *loopOptions) error {
		o.detractSleep = enabled
		return nil
	})
}

func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		logger:       noopLogger{},
		defaultSleep: envDuration("UV_DEFAULT_LOOP_SLEEP", time.Millisecond),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// workerCount resolves the threadpool size from UV_THREADPOOL_SIZE,
// clamped to [1,128] with a default of 4, matching libuv's own
// UV_THREADPOOL_SIZE semantics.
func workerCount() int {
	const def = 4
	v := os.Getenv("UV_THREADPOOL_SIZE")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > 128 {
		return 128
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return def
}
