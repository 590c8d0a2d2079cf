// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/resource"
)

// syncState tracks the walking synchronization state of every binding during
// plan construction, seeded lazily from each handle's persisted state so the
// first barrier in a new graph continues where the previous submission left
// the resource.
type syncState struct {
	g       *Graph
	current map[int]driver.Sync
	touched map[int]bool
}

func newSyncState(g *Graph) *syncState {
	return &syncState{
		g:       g,
		current: make(map[int]driver.Sync, len(g.bindings)),
		touched: make(map[int]bool, len(g.bindings)),
	}
}

func (s *syncState) get(binding int) driver.Sync {
	if cur, ok := s.current[binding]; ok {
		return cur
	}
	cur := s.g.bindings[binding].handle.State()
	s.current[binding] = cur
	return cur
}

// barrierNeeded decides whether moving a resource from cur to want requires
// synchronization. Compatible read-after-read needs none; any write on
// either side, a layout change, or a queue ownership transfer does.
func barrierNeeded(kind resource.Kind, cur, want driver.Sync) bool {
	if kind == resource.KindImage && cur.Layout != want.Layout {
		return true
	}
	if cur.Queue != want.Queue {
		return true
	}
	return cur.HasWrite() || want.HasWrite()
}

// apply advances the state for one declared access and returns the barrier
// it requires, if any. Read-after-read accumulates stages and access bits
// into the visible scope instead of emitting a barrier. Within a merged
// group, attachment re-accesses under an identical scope emit no barrier:
// ordering between subpasses on shared attachments is native to the render
// pass.
func (s *syncState) apply(a access, inGroup bool) (driver.ImageBarrier, driver.BufferBarrier, bool) {
	b := s.g.bindings[a.binding]
	cur := s.get(a.binding)
	want := a.sync
	s.touched[a.binding] = true

	if !barrierNeeded(b.handle.Kind(), cur, want) {
		cur.Stage |= want.Stage
		cur.Access |= want.Access
		s.current[a.binding] = cur
		return driver.ImageBarrier{}, driver.BufferBarrier{}, false
	}
	if inGroup && a.attachment && cur.Layout == want.Layout && cur.Queue == want.Queue {
		cur.Stage |= want.Stage
		cur.Access |= want.Access
		s.current[a.binding] = cur
		return driver.ImageBarrier{}, driver.BufferBarrier{}, false
	}

	s.current[a.binding] = want
	if b.handle.Kind() == resource.KindImage {
		return driver.ImageBarrier{Image: b.handle.ImageID(), Src: cur, Dst: want},
			driver.BufferBarrier{}, true
	}
	return driver.ImageBarrier{},
		driver.BufferBarrier{Buffer: b.handle.BufferID(), Src: cur, Dst: want}, true
}

// finals returns the resting synchronization state of every touched handle,
// committed to the handles once the submission completes.
func (s *syncState) finals() map[*resource.Handle]driver.Sync {
	out := make(map[*resource.Handle]driver.Sync, len(s.touched))
	for idx := range s.touched {
		out[s.g.bindings[idx].handle] = s.current[idx]
	}
	return out
}
