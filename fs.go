// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import "os"

// Filesystem adapts blocking os package calls into futures backed by the
// loop's worker pool, the same promisified shape libuv's uv_fs_t requests
// give their callers. Every method here queues its os call as Work and
// returns that Work's Future.
type Filesystem struct {
	loop *Loop
}

// FS returns the Filesystem facade bound to loop.
func (l *Loop) FS() *Filesystem { return &Filesystem{loop: l} }

// Stat queues os.Stat(path).
func (f *Filesystem) Stat(path string) *Future[os.FileInfo] {
	return QueueWork(f.loop, func() (os.FileInfo, error) { return os.Stat(path) }).Future()
}

// ReadFile queues os.ReadFile(path).
func (f *Filesystem) ReadFile(path string) *Future[[]byte] {
	return QueueWork(f.loop, func() ([]byte, error) { return os.ReadFile(path) }).Future()
}

// WriteFile queues os.WriteFile(path, data, perm).
func (f *Filesystem) WriteFile(path string, data []byte, perm os.FileMode) *Future[struct{}] {
	return QueueWork(f.loop, func() (struct{}, error) {
		return struct{}{}, os.WriteFile(path, data, perm)
	}).Future()
}

// Mkdir queues os.MkdirAll(path, perm).
func (f *Filesystem) Mkdir(path string, perm os.FileMode) *Future[struct{}] {
	return QueueWork(f.loop, func() (struct{}, error) {
		return struct{}{}, os.MkdirAll(path, perm)
	}).Future()
}

// Remove queues os.RemoveAll(path).
func (f *Filesystem) Remove(path string) *Future[struct{}] {
	return QueueWork(f.loop, func() (struct{}, error) {
		return struct{}{}, os.RemoveAll(path)
	}).Future()
}

// Rename queues os.Rename(oldpath, newpath).
func (f *Filesystem) Rename(oldpath, newpath string) *Future[struct{}] {
	return QueueWork(f.loop, func() (struct{}, error) {
		return struct{}{}, os.Rename(oldpath, newpath)
	}).Future()
}

// Readdir queues os.ReadDir(path).
func (f *Filesystem) Readdir(path string) *Future[[]os.DirEntry] {
	return QueueWork(f.loop, func() ([]os.DirEntry, error) { return os.ReadDir(path) }).Future()
}

// Open queues os.Open(path), returning the live *os.File. Callers are
// responsible for closing it; unlike the other Filesystem methods this
// one hands back a resource, not just a value.
func (f *Filesystem) Open(path string) *Future[*os.File] {
	return QueueWork(f.loop, func() (*os.File, error) { return os.Open(path) }).Future()
}
