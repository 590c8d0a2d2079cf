// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "github.com/gogpu/gputypes"

// mergePasses greedily groups adjacent draw passes of the total order into
// subpass groups. Since candidates are adjacent in a dependency-consistent
// order, grouping never reorders a pass across one it depends on; the merge
// predicate below is pure policy.
func (g *Graph) mergePasses(order []int, edges *depEdges) [][]int {
	groups := make([][]int, 0, len(order))
	for _, idx := range order {
		if len(groups) > 0 && g.canMerge(groups[len(groups)-1], idx, edges) {
			last := len(groups) - 1
			groups[last] = append(groups[last], idx)
			continue
		}
		groups = append(groups, []int{idx})
	}
	return groups
}

// canMerge reports whether pass next may join the current group:
//
//   - merging enabled and the group has room;
//   - every member and next are draw passes with identical attachment sets;
//   - next loads every attachment (a clear would wipe the group's output);
//   - every dependency of next on a group member runs through attachments
//     only, since a mid-group barrier on any other resource cannot be
//     expressed inside one native render pass.
func (g *Graph) canMerge(group []int, next int, edges *depEdges) bool {
	if g.opts.Merge.Disabled || len(group) >= g.opts.Merge.MaxPasses {
		return false
	}
	np := g.passes[next]
	if np.kind != KindDraw {
		return false
	}
	first := g.passes[group[0]]
	if first.kind != KindDraw || !sameAttachments(first, np) {
		return false
	}
	for _, c := range np.colors {
		if c.load == gputypes.LoadOpClear {
			return false
		}
	}
	if np.depth != nil && np.depth.load == gputypes.LoadOpClear {
		return false
	}
	for _, member := range group {
		for _, b := range edges.causes(member, next) {
			mp := g.passes[member]
			if !mp.isAttachment(b) || !np.isAttachment(b) {
				return false
			}
		}
	}
	return true
}

// sameAttachments reports whether two draw passes target the same color
// slots with the same resources and the same depth resource.
func sameAttachments(a, b *Pass) bool {
	if len(a.colors) != len(b.colors) {
		return false
	}
	for _, ca := range a.colors {
		found := false
		for _, cb := range b.colors {
			if cb.slot == ca.slot {
				found = cb.binding == ca.binding
				break
			}
		}
		if !found {
			return false
		}
	}
	switch {
	case a.depth == nil && b.depth == nil:
		return true
	case a.depth == nil || b.depth == nil:
		return false
	default:
		return a.depth.binding == b.depth.binding
	}
}
