// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logging sink used throughout the loop: handle
// lifecycle transitions, Async coalescing, Work dispatch/completion, and
// panic recovery. It is intentionally narrow so it can be satisfied by a
// single logiface.Logger[*Event] method set, or trivially no-op'd out.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// noopLogger is the zero-cost default installed when no WithLogger option
// is supplied.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// logifaceLogger adapts a *logiface.Logger[*stumpy.Event] (stumpy's
// concrete JSON logiface.Event writer) to the Logger interface.
type logifaceLogger struct {
	L *logiface.Logger[*stumpy.Event]
}

// NewLogger builds the default structured Logger, writing newline-delimited
// JSON via stumpy through a logiface.Logger pipeline.
func NewLogger(l *logiface.Logger[*stumpy.Event]) Logger {
	return logifaceLogger{L: l}
}

func (l logifaceLogger) log(level logiface.Level, msg string, fields map[string]any) {
	b := l.L.Build(level)
	if b == nil {
		return
	}
	for k, v := range fields {
		b = b.Field(k, v)
	}
	b.Log(msg)
}

func (l logifaceLogger) Debug(msg string, fields map[string]any) { l.log(logiface.LevelDebug, msg, fields) }
func (l logifaceLogger) Info(msg string, fields map[string]any)  { l.log(logiface.LevelInformational, msg, fields) }
func (l logifaceLogger) Warn(msg string, fields map[string]any)  { l.log(logiface.LevelWarning, msg, fields) }
func (l logifaceLogger) Error(msg string, fields map[string]any) { l.log(logiface.LevelError, msg, fields) }

// reactorLogFunc adapts a Logger down to the internal/reactor.LogFunc shape,
// so the Engine can log without importing the root package (avoiding an
// import cycle).
func reactorLogFunc(l Logger) func(level string, msg string, fields map[string]any) {
	return func(level string, msg string, fields map[string]any) {
		switch level {
		case "debug":
			l.Debug(msg, fields)
		case "warn":
			l.Warn(msg, fields)
		case "error":
			l.Error(msg, fields)
		default:
			l.Info(msg, fields)
		}
	}
}
