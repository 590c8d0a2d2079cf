// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"sort"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/resource"
)

// planItem is one executable step: a single pass or a merged subpass group,
// preceded by the barriers that make its accesses safe.
type planItem struct {
	passes []*Pass

	// target is the native render pass for draw items with attachments,
	// nil otherwise.
	target *driver.RenderPassDesc

	imageBarriers  []driver.ImageBarrier
	bufferBarriers []driver.BufferBarrier

	// releases lists transients whose last consumer is this item; they may
	// return to the pool once the submission containing the item completes.
	releases []*resource.Handle
}

// ExecutionPlan is a resolved graph: an ordered list of plan items plus the
// bookkeeping the executor needs to commit resource states and return
// transients after completion.
//
// A plan is executed (or discarded) exactly once.
type ExecutionPlan struct {
	graph *Graph
	items []planItem

	// finals is the resting synchronization state per touched handle.
	finals map[*resource.Handle]driver.Sync

	// handles lists every bound handle, touched or not; all are checked in
	// at completion.
	handles []*resource.Handle

	// transients lists pool-leased handles still owned by the plan.
	transients []*resource.Handle

	executed  bool
	discarded bool
}

// buildPlan lowers ordered pass groups into plan items with barriers, render
// targets, final states and transient release points.
func (g *Graph) buildPlan(groups [][]int) *ExecutionPlan {
	state := newSyncState(g)
	items := make([]planItem, 0, len(groups))

	lastConsumer := make(map[int]int) // binding -> item index

	for _, group := range groups {
		item := planItem{passes: make([]*Pass, 0, len(group))}
		for gi, idx := range group {
			p := g.passes[idx]
			item.passes = append(item.passes, p)
			for _, a := range p.accesses {
				ib, bb, needed := state.apply(a, gi > 0)
				if needed {
					if g.bindings[a.binding].handle.Kind() == resource.KindImage {
						item.imageBarriers = append(item.imageBarriers, ib)
					} else {
						item.bufferBarriers = append(item.bufferBarriers, bb)
					}
				}
				lastConsumer[a.binding] = len(items)
			}
		}
		item.target = g.renderTarget(item.passes)
		items = append(items, item)
	}

	plan := &ExecutionPlan{
		graph:  g,
		items:  items,
		finals: state.finals(),
	}

	for _, b := range g.bindings {
		if b.transient && !b.touched() {
			// Bound but never consumed: dropped with no GPU work, returned
			// to the pool right away.
			b.handle.Checkin(g)
			if g.pool != nil {
				g.pool.Release(b.handle, nil)
			}
			continue
		}
		plan.handles = append(plan.handles, b.handle)
		if !b.transient {
			continue
		}
		plan.transients = append(plan.transients, b.handle)
		if item, ok := lastConsumer[b.index]; ok {
			plan.items[item].releases = append(plan.items[item].releases, b.handle)
		}
	}
	return plan
}

// renderTarget builds the native render pass descriptor for a draw item, or
// nil for items without attachments. All passes of a merged group share the
// same attachment set; load and clear come from the first pass, store from
// the last.
func (g *Graph) renderTarget(passes []*Pass) *driver.RenderPassDesc {
	first := passes[0]
	if first.kind != KindDraw || (len(first.colors) == 0 && first.depth == nil) {
		return nil
	}
	last := passes[len(passes)-1]

	colors := make([]colorTarget, len(first.colors))
	copy(colors, first.colors)
	sort.Slice(colors, func(i, j int) bool { return colors[i].slot < colors[j].slot })

	desc := &driver.RenderPassDesc{
		Label:     first.name,
		Subpasses: len(passes),
	}
	for _, c := range colors {
		h := g.bindings[c.binding].handle
		store := c.store
		for _, lc := range last.colors {
			if lc.slot == c.slot {
				store = lc.store
			}
		}
		desc.Colors = append(desc.Colors, driver.ColorAttachment{
			Image: h.ImageID(),
			Load:  c.load,
			Store: store,
			Clear: c.clear,
		})
		if d := h.ImageDesc(); d != nil && desc.Width == 0 {
			desc.Width = d.Size.Width
			desc.Height = d.Size.Height
		}
	}
	if first.depth != nil {
		h := g.bindings[first.depth.binding].handle
		store := first.depth.store
		if last.depth != nil {
			store = last.depth.store
		}
		desc.Depth = &driver.DepthAttachment{
			Image:      h.ImageID(),
			Load:       first.depth.load,
			Store:      store,
			ClearDepth: first.depth.clearDepth,
		}
		if d := h.ImageDesc(); d != nil && desc.Width == 0 {
			desc.Width = d.Size.Width
			desc.Height = d.Size.Height
		}
	}
	return desc
}

// Items returns how many executable steps the plan contains.
func (p *ExecutionPlan) Items() int { return len(p.items) }

// Discard abandons an unexecuted plan: every handle is checked back in and
// every transient returns to the pool with no completion guard, since
// nothing was submitted. Discarding an executed plan returns ErrExecuted.
func (p *ExecutionPlan) Discard() error {
	if p.discarded {
		return nil
	}
	if p.executed {
		return ErrExecuted
	}
	p.discarded = true
	p.abandon()
	return nil
}

// abandon releases checkouts and pooled transients without touching
// persisted states.
func (p *ExecutionPlan) abandon() {
	g := p.graph
	for _, h := range p.handles {
		h.Checkin(g)
	}
	if g.pool == nil {
		return
	}
	for _, h := range p.transients {
		if err := g.pool.Release(h, nil); err != nil {
			logger().Warn("transient release failed", "label", h.Label(), "err", err)
		}
	}
}
