// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"container/heap"
	"fmt"
)

// depEdges is the hazard DAG over recorded passes. succ[a][b] holds the
// binding indices whose version hazards make pass b depend on pass a.
type depEdges struct {
	succ     []map[int][]int
	indegree []int
}

func (e *depEdges) add(from, to, binding int) {
	if from < 0 || from == to {
		return
	}
	m := e.succ[from]
	if m == nil {
		m = make(map[int][]int)
		e.succ[from] = m
	}
	if _, dup := m[to]; !dup {
		e.indegree[to]++
	}
	m[to] = append(m[to], binding)
}

// causes returns the bindings that make pass to depend on pass from, or nil
// when no direct edge exists.
func (e *depEdges) causes(from, to int) []int {
	if e.succ[from] == nil {
		return nil
	}
	return e.succ[from][to]
}

// buildEdges derives the hazard DAG from every binding's version chain:
//
//   - read-after-write: a reader of version v depends on the producer of v;
//   - write-after-write: the producer of v+1 depends on the producer of v;
//   - write-after-read: the producer of v+1 depends on every reader of v.
func (g *Graph) buildEdges() *depEdges {
	e := &depEdges{
		succ:     make([]map[int][]int, len(g.passes)),
		indegree: make([]int, len(g.passes)),
	}
	for _, b := range g.bindings {
		for v := 0; v <= b.version; v++ {
			producer := b.producers[v]
			for _, r := range b.readers[v] {
				e.add(producer, r, b.index)
			}
			if v+1 <= b.version {
				next := b.producers[v+1]
				e.add(producer, next, b.index)
				for _, r := range b.readers[v] {
					e.add(r, next, b.index)
				}
			}
		}
	}
	return e
}

// indexHeap is a min-heap of pass recording indices; it makes the
// topological order deterministic by preferring earlier-recorded passes
// among the ready set.
type indexHeap []int

func (h indexHeap) Len() int            { return len(h) }
func (h indexHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder returns a total order of pass indices consistent with the hazard
// DAG, breaking ties by recording order. A cycle yields ErrCyclicDependency
// and no order.
func (g *Graph) topoOrder(e *depEdges) ([]int, error) {
	indegree := make([]int, len(e.indegree))
	copy(indegree, e.indegree)

	ready := &indexHeap{}
	for i, d := range indegree {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]int, 0, len(g.passes))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, i)
		for next := range e.succ[i] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}
	if len(order) != len(g.passes) {
		for i, d := range indegree {
			if d > 0 {
				return nil, fmt.Errorf("%w: pass %q cannot be ordered",
					ErrCyclicDependency, g.passes[i].name)
			}
		}
		return nil, ErrCyclicDependency
	}
	return order, nil
}
