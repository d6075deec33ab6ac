// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync"
	"sync/atomic"
	"weak"
)

// handleState is the three-party lifecycle every Handle moves through.
type handleState uint32

const (
	handleUninitialized handleState = iota
	handleActive
	handleClosing
	handleClosed
)

// HandleData is the loop-owned half of a handle's three-party reference
// graph: application code holds a Handle, the Loop's registry holds a
// weak.Pointer[HandleData] keyed by id, and the engine callback closures
// captured for a given handle hold a strong *HandleData. This indirection
// lets a handle whose application-side object has been dropped still be
// detected and forgotten by the registry's scavenger, without the engine
// ever dereferencing a dangling pointer: weak.Pointer.Value returns nil
// instead.
type HandleData struct {
	id    uint64
	kind  string
	state atomic.Uint32
	owner weak.Pointer[Loop]

	closeOnce sync.Once
	onClose   func()
}

func (h *HandleData) State() handleState { return handleState(h.state.Load()) }

func (h *HandleData) setState(s handleState) { h.state.Store(uint32(s)) }

func (h *HandleData) markClosed(run func()) {
	h.closeOnce.Do(func() {
		h.setState(handleClosed)
		if l := h.owner.Value(); l != nil {
			l.engine.DecActive()
			l.logger.Debug("handle closed", map[string]any{"kind": h.kind, "id": h.id})
		}
		if run != nil {
			run()
		}
	})
}

// registry tracks live handles via weak pointers so the loop can scavenge
// handles whose application-side references were dropped without an
// explicit Close.
type registry struct {
	mu     sync.RWMutex
	data   map[uint64]weak.Pointer[HandleData]
	ring   []uint64
	head   int
	nextID uint64
}

func newRegistry() *registry {
	return &registry{
		data:   make(map[uint64]weak.Pointer[HandleData]),
		ring:   make([]uint64, 0, 256),
		nextID: 1,
	}
}

// register allocates an id and tracks hd by weak pointer.
func (r *registry) register(hd *HandleData) {
	wp := weak.Make(hd)

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	hd.id = id

	r.data[id] = wp
	r.ring = append(r.ring, id)
}

// scavenge checks a bounded batch of the ring for handles that have either
// been garbage collected (application dropped its last reference without
// closing) or already reached handleClosed, and forgets them, returning
// how many were forgotten.
func (r *registry) scavenge(batchSize int) int {
	if batchSize <= 0 {
		return 0
	}

	r.mu.RLock()
	ringLen := len(r.ring)
	if ringLen == 0 {
		r.mu.RUnlock()
		return 0
	}

	start := r.head
	end := start + batchSize
	if end > ringLen {
		end = ringLen
	}

	type item struct {
		id  uint64
		idx int
	}
	var items []item
	var wps []weak.Pointer[HandleData]
	for i := start; i < end; i++ {
		id := r.ring[i]
		if id == 0 {
			continue
		}
		if wp, ok := r.data[id]; ok {
			items = append(items, item{id, i})
			wps = append(wps, wp)
		}
	}
	nextHead := end
	if nextHead >= ringLen {
		nextHead = 0
	}
	r.mu.RUnlock()

	cycleCompleted := nextHead == 0

	var toRemove []item
	for i, it := range items {
		hd := wps[i].Value()
		if hd == nil || hd.State() == handleClosed {
			toRemove = append(toRemove, it)
		}
	}

	r.mu.Lock()
	for _, it := range toRemove {
		delete(r.data, it.id)
		if it.idx < len(r.ring) && r.ring[it.idx] == it.id {
			r.ring[it.idx] = 0
		}
	}
	r.head = nextHead
	if cycleCompleted {
		active := len(r.data)
		capacity := len(r.ring)
		if capacity > 256 && float64(active) < float64(capacity)*0.25 {
			r.compactAndRenew()
		}
	}
	r.mu.Unlock()

	return len(toRemove)
}

// closeAll force-closes every still-tracked handle, run during Loop
// teardown so no handle callback can fire after the owning loop is gone.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, wp := range r.data {
		if hd := wp.Value(); hd != nil && hd.State() != handleClosed {
			hd.markClosed(hd.onClose)
		}
		delete(r.data, id)
	}
	r.ring = r.ring[:0]
	r.head = 0
}

// compactAndRenew drops null markers from the ring and rebuilds the map,
// reclaiming the bucket array a plain delete() loop would leave behind.
// Callers must hold mu.
func (r *registry) compactAndRenew() {
	newRing := make([]uint64, 0, len(r.data))
	newData := make(map[uint64]weak.Pointer[HandleData], len(r.data))
	for _, id := range r.ring {
		if id == 0 {
			continue
		}
		if wp, ok := r.data[id]; ok {
			newRing = append(newRing, id)
			newData[id] = wp
		}
	}
	r.ring = newRing
	r.data = newData
	r.head = 0
}
