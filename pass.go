// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/gputypes"
)

// Kind classifies what a pass records. Only draw passes carry render
// attachments and only draw passes are candidates for subpass merging.
type Kind uint8

// Pass kinds.
const (
	// KindDraw rasterizes into render attachments.
	KindDraw Kind = iota

	// KindCompute dispatches compute work.
	KindCompute

	// KindRayTrace traces rays against acceleration structures.
	KindRayTrace

	// KindTransfer copies between resources.
	KindTransfer

	// KindAccelBuild builds or updates an acceleration structure.
	KindAccelBuild
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDraw:
		return "Draw"
	case KindCompute:
		return "Compute"
	case KindRayTrace:
		return "RayTrace"
	case KindTransfer:
		return "Transfer"
	case KindAccelBuild:
		return "AccelBuild"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// accessMode distinguishes how a pass touches a node version.
type accessMode uint8

const (
	accessRead accessMode = iota
	accessWrite
	accessReadWrite
)

// access is one declared resource access of a pass. The binding/version pair
// and mode define the hazard the scheduler resolves; sync is the destination
// scope a barrier must establish before the pass runs.
type access struct {
	binding    int
	version    int
	mode       accessMode
	sync       driver.Sync
	attachment bool
}

// colorTarget binds one node as a color attachment slot.
type colorTarget struct {
	slot    int
	binding int
	load    gputypes.LoadOp
	store   gputypes.StoreOp
	clear   gputypes.Color
}

// depthTarget binds one node as the depth attachment.
type depthTarget struct {
	binding    int
	load       gputypes.LoadOp
	store      gputypes.StoreOp
	clearDepth float32
}

// PassFunc records the body of a pass into the command stream.
type PassFunc func(rc *RecordContext) error

// Pass is one recorded operation with declared resource accesses. Passes are
// created by Graph.AddPass and configured through the returned PassBuilder.
type Pass struct {
	name     string
	kind     Kind
	index    int
	queue    driver.QueueKind
	accesses []access
	colors   []colorTarget
	depth    *depthTarget
	fn       PassFunc
}

// Name returns the debug name the pass was recorded with.
func (p *Pass) Name() string { return p.name }

// Kind returns the pass kind.
func (p *Pass) Kind() Kind { return p.kind }

// isAttachment reports whether the pass uses the binding as a render
// attachment.
func (p *Pass) isAttachment(binding int) bool {
	for _, c := range p.colors {
		if c.binding == binding {
			return true
		}
	}
	return p.depth != nil && p.depth.binding == binding
}

// PassBuilder declares the accesses, attachments and body of one pass.
//
// Builder methods validate at record time; the first error sticks, poisons
// the graph, and is returned again by Execute and by Graph.Resolve. Methods
// that declare a write return the successor node version so pass construction
// stays linear.
type PassBuilder struct {
	g   *Graph
	p   *Pass
	err error
}

// fail records the first builder error and poisons the graph.
func (b *PassBuilder) fail(err error) error {
	if b.err == nil {
		b.err = err
		b.g.poison(err)
	}
	return b.err
}

// checkNode validates that n is a live node of the builder's graph.
func (b *PassBuilder) checkNode(n Node) error {
	if !n.valid {
		return ErrInvalidNode
	}
	if n.g != b.g {
		return ErrForeignNode
	}
	return nil
}

// Read declares that the pass reads n under the scope s.
func (b *PassBuilder) Read(n Node, s driver.Sync) *PassBuilder {
	if b.err != nil {
		return b
	}
	if err := b.checkNode(n); err != nil {
		b.fail(err)
		return b
	}
	bd := b.g.bindings[n.binding]
	bd.readers[n.version] = append(bd.readers[n.version], b.p.index)
	b.p.accesses = append(b.p.accesses, access{
		binding: n.binding,
		version: n.version,
		mode:    accessRead,
		sync:    s,
	})
	return b
}

// Write declares that the pass writes n under the scope s and returns the
// successor version. Writing a superseded version fails with ErrStaleWrite:
// versions form a strict chain with at most one successor writer.
func (b *PassBuilder) Write(n Node, s driver.Sync) (Node, error) {
	return b.writeAccess(n, s, accessWrite, false)
}

// ReadWrite declares that the pass both reads and writes n under the scope s
// and returns the successor version.
func (b *PassBuilder) ReadWrite(n Node, s driver.Sync) (Node, error) {
	return b.writeAccess(n, s, accessReadWrite, false)
}

func (b *PassBuilder) writeAccess(n Node, s driver.Sync, mode accessMode, attachment bool) (Node, error) {
	if b.err != nil {
		return Node{}, b.err
	}
	if err := b.checkNode(n); err != nil {
		return Node{}, b.fail(err)
	}
	bd := b.g.bindings[n.binding]
	if n.version != bd.version {
		return Node{}, b.fail(fmt.Errorf("%w: %s written at v%d, current v%d",
			ErrStaleWrite, bd.handle.Label(), n.version, bd.version))
	}
	bd.version++
	bd.producers = append(bd.producers, b.p.index)
	bd.readers = append(bd.readers, nil)
	b.p.accesses = append(b.p.accesses, access{
		binding:    n.binding,
		version:    n.version,
		mode:       mode,
		sync:       s,
		attachment: attachment,
	})
	return Node{g: b.g, binding: n.binding, version: bd.version, valid: true}, nil
}

// Color binds n as the color attachment in slot and returns the successor
// version. Only draw passes carry attachments. A LoadOpLoad attachment counts
// as a read-write access, a LoadOpClear one as a write.
func (b *PassBuilder) Color(slot int, n Node, load gputypes.LoadOp, store gputypes.StoreOp, clear gputypes.Color) (Node, error) {
	if b.err != nil {
		return Node{}, b.err
	}
	if b.p.kind != KindDraw {
		return Node{}, b.fail(fmt.Errorf("%w: %s pass %q", ErrNotDrawPass, b.p.kind, b.p.name))
	}
	mode := accessWrite
	acc := driver.AccessColorWrite
	if load == gputypes.LoadOpLoad {
		mode = accessReadWrite
		acc |= driver.AccessColorRead
	}
	out, err := b.writeAccess(n, driver.Sync{
		Stage:  driver.StageColorOutput,
		Access: acc,
		Layout: driver.LayoutColorAttachment,
	}, mode, true)
	if err != nil {
		return Node{}, err
	}
	b.p.colors = append(b.p.colors, colorTarget{
		slot:    slot,
		binding: n.binding,
		load:    load,
		store:   store,
		clear:   clear,
	})
	return out, nil
}

// Depth binds n as the depth attachment and returns the successor version.
func (b *PassBuilder) Depth(n Node, load gputypes.LoadOp, store gputypes.StoreOp, clearDepth float32) (Node, error) {
	if b.err != nil {
		return Node{}, b.err
	}
	if b.p.kind != KindDraw {
		return Node{}, b.fail(fmt.Errorf("%w: %s pass %q", ErrNotDrawPass, b.p.kind, b.p.name))
	}
	mode := accessWrite
	acc := driver.AccessDepthWrite
	if load == gputypes.LoadOpLoad {
		mode = accessReadWrite
		acc |= driver.AccessDepthRead
	}
	out, err := b.writeAccess(n, driver.Sync{
		Stage:  driver.StageDepthStencil,
		Access: acc,
		Layout: driver.LayoutDepthStencilAttachment,
	}, mode, true)
	if err != nil {
		return Node{}, err
	}
	b.p.depth = &depthTarget{
		binding:    n.binding,
		load:       load,
		store:      store,
		clearDepth: clearDepth,
	}
	return out, nil
}

// OnQueue routes the pass to a hardware queue. The default is the graphics
// queue.
func (b *PassBuilder) OnQueue(q driver.QueueKind) *PassBuilder {
	if b.err == nil {
		b.p.queue = q
	}
	return b
}

// Execute sets the pass body and finishes the builder, returning the first
// recording error. A pass without a body contributes only its declared
// accesses; barriers and attachment load/store still apply.
func (b *PassBuilder) Execute(fn PassFunc) error {
	if b.err != nil {
		return b.err
	}
	b.p.fn = fn
	return nil
}

// RecordContext is handed to pass bodies during execution to record commands.
type RecordContext struct {
	dev driver.Device
	enc driver.Encoder
	g   *Graph
}

// Device returns the device the plan executes on.
func (rc *RecordContext) Device() driver.Device { return rc.dev }

// Encoder returns the command encoder of the current submission. Inside a
// merged subpass group the encoder has an open render pass; bodies record
// draw commands only.
func (rc *RecordContext) Encoder() driver.Encoder { return rc.enc }

// ImageID resolves a node to its backend image ID.
func (rc *RecordContext) ImageID(n Node) driver.ImageID {
	if !n.valid || n.g != rc.g {
		return driver.InvalidID
	}
	return n.Handle().ImageID()
}

// BufferID resolves a node to its backend buffer ID.
func (rc *RecordContext) BufferID(n Node) driver.BufferID {
	if !n.valid || n.g != rc.g {
		return driver.InvalidID
	}
	return n.Handle().BufferID()
}
