// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build windows

package uv

import "os"

// signalName falls back to os.Signal's own String() on windows, where the
// small set of deliverable signals (os.Interrupt, os.Kill) need no extra
// lookup table.
func signalName(sig os.Signal) string { return sig.String() }
