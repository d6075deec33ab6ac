// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !windows

package uv

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalNames is the framework's own signal-name table, since Go exposes no
// strsignal binding on any platform: every table entry is built from
// golang.org/x/sys/unix's numeric signal constants (portable across the
// unix GOOS targets this package supports, unlike relying solely on the
// subset the standard syscall package happens to define) rather than
// parsing sig.String()'s free-form text.
var signalNames = map[syscall.Signal]string{
	syscall.Signal(unix.SIGHUP):    "SIGHUP",
	syscall.Signal(unix.SIGINT):    "SIGINT",
	syscall.Signal(unix.SIGQUIT):   "SIGQUIT",
	syscall.Signal(unix.SIGILL):    "SIGILL",
	syscall.Signal(unix.SIGTRAP):   "SIGTRAP",
	syscall.Signal(unix.SIGABRT):   "SIGABRT",
	syscall.Signal(unix.SIGBUS):    "SIGBUS",
	syscall.Signal(unix.SIGFPE):    "SIGFPE",
	syscall.Signal(unix.SIGKILL):   "SIGKILL",
	syscall.Signal(unix.SIGUSR1):   "SIGUSR1",
	syscall.Signal(unix.SIGSEGV):   "SIGSEGV",
	syscall.Signal(unix.SIGUSR2):   "SIGUSR2",
	syscall.Signal(unix.SIGPIPE):   "SIGPIPE",
	syscall.Signal(unix.SIGALRM):   "SIGALRM",
	syscall.Signal(unix.SIGTERM):   "SIGTERM",
	syscall.Signal(unix.SIGCHLD):   "SIGCHLD",
	syscall.Signal(unix.SIGCONT):   "SIGCONT",
	syscall.Signal(unix.SIGSTOP):   "SIGSTOP",
	syscall.Signal(unix.SIGTSTP):   "SIGTSTP",
	syscall.Signal(unix.SIGTTIN):   "SIGTTIN",
	syscall.Signal(unix.SIGTTOU):   "SIGTTOU",
	syscall.Signal(unix.SIGURG):    "SIGURG",
	syscall.Signal(unix.SIGXCPU):   "SIGXCPU",
	syscall.Signal(unix.SIGXFSZ):   "SIGXFSZ",
	syscall.Signal(unix.SIGVTALRM): "SIGVTALRM",
	syscall.Signal(unix.SIGPROF):   "SIGPROF",
	syscall.Signal(unix.SIGWINCH):  "SIGWINCH",
	syscall.Signal(unix.SIGIO):     "SIGIO",
	syscall.Signal(unix.SIGSYS):    "SIGSYS",
}

// signalName resolves sig to its conventional uppercase name (e.g.
// "SIGINT"), falling back to os.Signal's own String() for anything outside
// the table above.
func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name, ok := signalNames[s]; ok {
			return name
		}
	}
	return sig.String()
}
