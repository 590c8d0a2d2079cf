// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pool caches retired GPU resources and leases them back out instead
// of allocating fresh.
//
// The pool is the one piece of mutable state shared across graphs and frames:
// lease and release are serialized internally. A released entry is guarded by
// the fence of the submission that last used it and is never leased again
// until that fence reports completion, so a reused resource can never race
// in-flight GPU work. Idle entries that go unused for a configurable number
// of frames are evicted to bound memory.
package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/resource"
)

// Pool errors.
var (
	// ErrClosed is returned when leasing from a closed pool.
	ErrClosed = errors.New("pool: pool is closed")

	// ErrNotPooled is returned when releasing a handle the pool does not own.
	ErrNotPooled = errors.New("pool: handle was not leased from this pool")
)

// DefaultRetentionFrames is how many frames an idle entry survives before
// eviction when the configuration does not say otherwise.
const DefaultRetentionFrames = 3

// ImageMatchFunc decides whether an idle image can satisfy a request.
// The candidate descriptor is have; the requested one is want.
type ImageMatchFunc func(want, have *driver.ImageDesc) bool

// BufferMatchFunc decides whether an idle buffer can satisfy a request.
type BufferMatchFunc func(want, have *driver.BufferDesc) bool

// MatchImageExact accepts only descriptor-identical images.
func MatchImageExact(want, have *driver.ImageDesc) bool { return have.Equal(want) }

// MatchImageOversize additionally accepts larger images of the same format
// with a usage superset, trading wasted capacity for fewer allocations.
func MatchImageOversize(want, have *driver.ImageDesc) bool { return have.Compatible(want) }

// MatchBufferExact accepts only descriptor-identical buffers.
func MatchBufferExact(want, have *driver.BufferDesc) bool { return have.Equal(want) }

// MatchBufferOversize additionally accepts larger buffers with a usage
// superset.
func MatchBufferOversize(want, have *driver.BufferDesc) bool { return have.Compatible(want) }

// Config holds pool tuning parameters.
type Config struct {
	// RetentionFrames is how many frames an idle entry survives before
	// eviction. Defaults to DefaultRetentionFrames if <= 0.
	RetentionFrames int

	// ImageMatch selects idle images for lease requests.
	// Defaults to MatchImageOversize.
	ImageMatch ImageMatchFunc

	// BufferMatch selects idle buffers for lease requests.
	// Defaults to MatchBufferOversize.
	BufferMatch BufferMatchFunc
}

// Stats is a snapshot of pool activity counters.
type Stats struct {
	// Hits counts leases satisfied from idle entries.
	Hits uint64

	// Misses counts leases that allocated.
	Misses uint64

	// Evictions counts idle entries destroyed by retention.
	Evictions uint64

	// Entries is the current entry count, idle and checked out.
	Entries int
}

// String returns a human-readable stats summary.
func (s Stats) String() string {
	return fmt.Sprintf("Pool[%d entries, %d hits, %d misses, %d evictions]",
		s.Entries, s.Hits, s.Misses, s.Evictions)
}

// entry tracks one pooled resource.
type entry struct {
	handle *resource.Handle

	// idle is true when the entry is eligible for reuse; a checked-out entry
	// is owned by exactly one in-flight graph.
	idle bool

	// guard is the fence of the submission that last used the resource.
	// The entry is not leased again until the guard reports done.
	guard driver.Fence

	// lastUsed is the frame index of the most recent release.
	lastUsed uint64
}

// ready reports whether the entry can be handed out: idle with its guard
// fence (if any) observed complete.
func (e *entry) ready() bool {
	if !e.idle {
		return false
	}
	if e.guard == nil {
		return true
	}
	done, err := e.guard.Done()
	if err != nil || !done {
		return false
	}
	e.guard = nil
	return true
}

// Pool caches retired GPU resources for reuse.
//
// Pool is safe for concurrent use; the idle-entry scan-and-claim is serialized
// by an internal mutex.
type Pool struct {
	mu       sync.Mutex
	dev      driver.Device
	cfg      Config
	frame    uint64
	entries  []*entry
	byHandle map[*resource.Handle]*entry
	closed   bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a pool allocating through dev.
func New(dev driver.Device, cfg Config) *Pool {
	if cfg.RetentionFrames <= 0 {
		cfg.RetentionFrames = DefaultRetentionFrames
	}
	if cfg.ImageMatch == nil {
		cfg.ImageMatch = MatchImageOversize
	}
	if cfg.BufferMatch == nil {
		cfg.BufferMatch = MatchBufferOversize
	}
	return &Pool{
		dev:      dev,
		cfg:      cfg,
		byHandle: make(map[*resource.Handle]*entry),
	}
}

// LeaseImage returns an image satisfying desc, reusing an idle entry when the
// configured matcher accepts one and allocating otherwise. An exactly
// matching entry is always preferred over an oversized one. Allocation
// failure is retried once against idle entries with the relaxed oversize
// matcher before the error is surfaced.
func (p *Pool) LeaseImage(desc *driver.ImageDesc) (*resource.Handle, error) {
	if desc == nil {
		return nil, resource.ErrNilDesc
	}
	want := *desc
	want.Normalize()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	if e := p.findImage(&want, p.cfg.ImageMatch); e != nil {
		return p.claim(e), nil
	}

	h, err := resource.NewImage(p.dev, &want)
	if err != nil {
		// Relaxed retry: an oversized idle entry beats failing outright.
		if e := p.findImage(&want, MatchImageOversize); e != nil {
			logger().Warn("image allocation failed, reusing oversized entry",
				"label", want.Label, "err", err)
			return p.claim(e), nil
		}
		return nil, err
	}
	p.misses.Add(1)
	e := &entry{handle: h}
	p.entries = append(p.entries, e)
	p.byHandle[h] = e
	logger().Debug("pool allocated image",
		"label", want.Label, "width", want.Size.Width, "height", want.Size.Height)
	return h, nil
}

// LeaseBuffer is LeaseImage for buffers.
func (p *Pool) LeaseBuffer(desc *driver.BufferDesc) (*resource.Handle, error) {
	if desc == nil {
		return nil, resource.ErrNilDesc
	}
	want := *desc

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	if e := p.findBuffer(&want, p.cfg.BufferMatch); e != nil {
		return p.claim(e), nil
	}

	h, err := resource.NewBuffer(p.dev, &want)
	if err != nil {
		if e := p.findBuffer(&want, MatchBufferOversize); e != nil {
			logger().Warn("buffer allocation failed, reusing oversized entry",
				"label", want.Label, "err", err)
			return p.claim(e), nil
		}
		return nil, err
	}
	p.misses.Add(1)
	e := &entry{handle: h}
	p.entries = append(p.entries, e)
	p.byHandle[h] = e
	logger().Debug("pool allocated buffer", "label", want.Label, "size", want.Size)
	return h, nil
}

// findImage scans idle, guard-complete image entries for the best match under
// match: exact descriptor equality wins, otherwise the first acceptable
// candidate. Callers hold p.mu.
func (p *Pool) findImage(want *driver.ImageDesc, match ImageMatchFunc) *entry {
	var fallback *entry
	for _, e := range p.entries {
		if e.handle.Kind() != resource.KindImage || !e.ready() {
			continue
		}
		have := e.handle.ImageDesc()
		if have.Equal(want) {
			return e
		}
		if fallback == nil && match(want, have) {
			fallback = e
		}
	}
	return fallback
}

// findBuffer is findImage for buffers. Callers hold p.mu.
func (p *Pool) findBuffer(want *driver.BufferDesc, match BufferMatchFunc) *entry {
	var fallback *entry
	for _, e := range p.entries {
		if e.handle.Kind() != resource.KindBuffer || !e.ready() {
			continue
		}
		have := e.handle.BufferDesc()
		if have.Equal(want) {
			return e
		}
		if fallback == nil && match(want, have) {
			fallback = e
		}
	}
	return fallback
}

// claim marks an entry checked out. Callers hold p.mu.
func (p *Pool) claim(e *entry) *resource.Handle {
	e.idle = false
	e.guard = nil
	p.hits.Add(1)
	return e.handle
}

// Release returns a leased handle to the pool. The entry becomes eligible for
// reuse only once guard reports completion; a nil guard means the resource
// was never submitted and is immediately reusable. Handles not leased from
// this pool are rejected with ErrNotPooled.
func (p *Pool) Release(h *resource.Handle, guard driver.Fence) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byHandle[h]
	if !ok {
		return ErrNotPooled
	}
	if p.closed {
		delete(p.byHandle, h)
		for i, kept := range p.entries {
			if kept == e {
				p.entries = append(p.entries[:i], p.entries[i+1:]...)
				break
			}
		}
		e.handle.Release()
		return nil
	}
	e.idle = true
	e.guard = guard
	e.lastUsed = p.frame
	return nil
}

// AdvanceFrame bumps the pool's frame index and evicts idle entries that have
// not been used for the configured retention, oldest first. Entries whose
// guard fence has not completed are never evicted.
func (p *Pool) AdvanceFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame++
	if p.closed {
		return
	}

	retention := uint64(p.cfg.RetentionFrames)
	kept := p.entries[:0]
	for _, e := range p.entries {
		if e.ready() && p.frame-e.lastUsed > retention {
			delete(p.byHandle, e.handle)
			e.handle.Release()
			p.evictions.Add(1)
			logger().Debug("pool evicted entry",
				"label", e.handle.Label(), "idle_frames", p.frame-e.lastUsed)
			continue
		}
		kept = append(kept, e)
	}
	p.entries = kept
}

// Stats returns a snapshot of activity counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	n := len(p.entries)
	p.mu.Unlock()
	return Stats{
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Evictions: p.evictions.Load(),
		Entries:   n,
	}
}

// Close destroys every idle entry and refuses further leases. Checked-out
// entries are left to their holders; releasing them after Close destroys them
// immediately.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	kept := p.entries[:0]
	for _, e := range p.entries {
		if !e.idle {
			kept = append(kept, e)
			continue
		}
		delete(p.byHandle, e.handle)
		e.handle.Release()
	}
	p.entries = kept
}
