// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/resource"
)

// Config assembles a graph's collaborators.
type Config struct {
	// Device allocates resources and executes submissions.
	Device driver.Device

	// Pool serves transient resources. Optional; graphs without a pool can
	// only bind caller-supplied handles.
	Pool *pool.Pool

	// Options tunes resolution and execution. Zero fields take defaults.
	Options Options
}

// Graph records one frame's passes and resource accesses, then resolves them
// into an ExecutionPlan.
//
// A Graph is single-threaded: construction, resolution and discarding happen
// from one goroutine. Independent goroutines may build independent graphs as
// long as no unresolved handle is shared between them.
type Graph struct {
	dev  driver.Device
	pool *pool.Pool
	opts Options

	bindings []*binding
	byHandle map[*resource.Handle]int
	passes   []*Pass

	resolved  bool
	discarded bool
	err       error
}

// New creates an empty graph.
func New(cfg Config) (*Graph, error) {
	if cfg.Device == nil {
		return nil, ErrNilDevice
	}
	cfg.Options.normalize()
	return &Graph{
		dev:      cfg.Device,
		pool:     cfg.Pool,
		opts:     cfg.Options,
		byHandle: make(map[*resource.Handle]int),
	}, nil
}

// poison records the first recording error; Resolve reports it.
func (g *Graph) poison(err error) {
	if g.err == nil {
		g.err = err
	}
}

// state gates recording operations on the graph lifecycle.
func (g *Graph) recordable() error {
	if g.discarded {
		return ErrDiscarded
	}
	if g.resolved {
		return ErrResolved
	}
	return nil
}

// Bind registers a caller-supplied handle with the graph and returns its
// current node version. The handle is checked out for the lifetime of the
// graph; binding a handle held by another unresolved graph fails with
// resource.ErrAlreadyBound and leaves that graph untouched. Binding the same
// handle twice returns the current version.
func (g *Graph) Bind(h *resource.Handle) (Node, error) {
	if err := g.recordable(); err != nil {
		return Node{}, err
	}
	if h == nil {
		return Node{}, ErrInvalidNode
	}
	if idx, ok := g.byHandle[h]; ok {
		return Node{g: g, binding: idx, version: g.bindings[idx].version, valid: true}, nil
	}
	if err := h.Checkout(g); err != nil {
		return Node{}, err
	}
	return g.addBinding(h, false), nil
}

// Transient leases an image from the pool and binds it as a graph-owned
// transient, returned to the pool after its last consumer's submission
// completes.
func (g *Graph) Transient(desc *driver.ImageDesc) (Node, error) {
	if err := g.recordable(); err != nil {
		return Node{}, err
	}
	if g.pool == nil {
		return Node{}, ErrNoPool
	}
	h, err := g.pool.LeaseImage(desc)
	if err != nil {
		return Node{}, err
	}
	if err := h.Checkout(g); err != nil {
		// A freshly leased handle is never checked out elsewhere.
		g.pool.Release(h, nil)
		return Node{}, err
	}
	return g.addBinding(h, true), nil
}

// TransientBuffer is Transient for buffers.
func (g *Graph) TransientBuffer(desc *driver.BufferDesc) (Node, error) {
	if err := g.recordable(); err != nil {
		return Node{}, err
	}
	if g.pool == nil {
		return Node{}, ErrNoPool
	}
	h, err := g.pool.LeaseBuffer(desc)
	if err != nil {
		return Node{}, err
	}
	if err := h.Checkout(g); err != nil {
		g.pool.Release(h, nil)
		return Node{}, err
	}
	return g.addBinding(h, true), nil
}

func (g *Graph) addBinding(h *resource.Handle, transient bool) Node {
	b := &binding{
		index:     len(g.bindings),
		handle:    h,
		transient: transient,
		producers: []int{-1},
		readers:   [][]int{nil},
	}
	g.bindings = append(g.bindings, b)
	g.byHandle[h] = b.index
	return Node{g: g, binding: b.index, valid: true}
}

// AddPass appends a pass of the given kind and returns its builder. The
// recording order is the deterministic tie-break for scheduling.
func (g *Graph) AddPass(name string, kind Kind) *PassBuilder {
	b := &PassBuilder{g: g}
	if err := g.recordable(); err != nil {
		b.err = err
		return b
	}
	if g.err != nil {
		b.err = g.err
		return b
	}
	p := &Pass{
		name:  name,
		kind:  kind,
		index: len(g.passes),
		queue: driver.QueueGraphics,
	}
	g.passes = append(g.passes, p)
	b.p = p
	return b
}

// Resolve consumes the recorded pass list and produces an execution plan:
// a dependency-consistent total order with adjacent compatible draw passes
// merged into subpass groups, minimal barriers computed between conflicting
// accesses, and transient releases scheduled after last consumers.
//
// Resolve may be called once; the pass list is consumed. Any recording error
// or a dependency cycle aborts with no plan, and the graph's checkouts are
// released so caller handles stay usable.
func (g *Graph) Resolve() (*ExecutionPlan, error) {
	if g.discarded {
		return nil, ErrDiscarded
	}
	if g.resolved {
		return nil, ErrResolved
	}
	if g.err != nil {
		g.Discard()
		return nil, g.err
	}
	g.resolved = true

	// Pin every access to its pass's queue; OnQueue may run after Read.
	for _, p := range g.passes {
		for i := range p.accesses {
			p.accesses[i].sync.Queue = p.queue
		}
	}

	edges := g.buildEdges()
	order, err := g.topoOrder(edges)
	if err != nil {
		g.releaseAll()
		g.discarded = true
		return nil, err
	}

	groups := g.mergePasses(order, edges)
	plan := g.buildPlan(groups)

	logger().Debug("graph resolved",
		"passes", len(g.passes), "items", len(plan.items),
		"bindings", len(g.bindings), "transients", len(plan.transients))
	return plan, nil
}

// Discard abandons an unresolved graph (or one whose resolution failed),
// releasing every checkout and returning transients to the pool so nothing
// leaks. Discarding twice is a no-op.
func (g *Graph) Discard() {
	if g.discarded {
		return
	}
	g.discarded = true
	if !g.resolved {
		g.releaseAll()
	}
}

// releaseAll checks every binding back in and returns transients to the pool
// with no completion guard (nothing was submitted).
func (g *Graph) releaseAll() {
	for _, b := range g.bindings {
		b.handle.Checkin(g)
		if b.transient && g.pool != nil {
			if err := g.pool.Release(b.handle, nil); err != nil {
				logger().Warn("transient release failed",
					"label", b.handle.Label(), "err", err)
			}
		}
	}
}

// Device returns the device the graph allocates and executes on.
func (g *Graph) Device() driver.Device { return g.dev }
