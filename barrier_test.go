// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"testing"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
)

func TestFirstWriteTransitionsFromUndefined(t *testing.T) {
	_, _, g := testRig(t)
	target, _ := g.Transient(testImageDesc("color"))

	if _, err := g.AddPass("clear", KindDraw).Color(0, target, gputypes.LoadOpClear, gputypes.StoreOpStore, gputypes.Color{}); err != nil {
		t.Fatalf("Color() error = %v", err)
	}

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	barriers := plan.items[0].imageBarriers
	if len(barriers) != 1 {
		t.Fatalf("item carries %d image barriers, want 1", len(barriers))
	}
	b := barriers[0]
	if b.Src.Layout != driver.LayoutUndefined {
		t.Errorf("Src.Layout = %v, want Undefined", b.Src.Layout)
	}
	if b.Dst.Layout != driver.LayoutColorAttachment {
		t.Errorf("Dst.Layout = %v, want ColorAttachment", b.Dst.Layout)
	}
	if !b.Dst.Access.HasWrite() {
		t.Errorf("Dst.Access = %v, want a write scope", b.Dst.Access)
	}
}

func TestReadAfterReadNeedsNoBarrier(t *testing.T) {
	dev, _, g := testRig(t)
	h, err := resource.NewImage(dev, testImageDesc("texture"))
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}
	// The image already rests in a sampled-read state.
	h.CommitState(sampledRead)

	n, err := g.Bind(h)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	g.AddPass("sample-a", KindCompute).Read(n, sampledRead)
	g.AddPass("sample-b", KindCompute).Read(n, driver.Sync{
		Stage:  driver.StageVertexShader,
		Access: driver.AccessShaderRead,
		Layout: driver.LayoutShaderRead,
	})

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for i, item := range plan.items {
		if len(item.imageBarriers) != 0 {
			t.Errorf("item %d carries %d image barriers, want 0", i, len(item.imageBarriers))
		}
	}
	// The resting state accumulates both read scopes.
	final := plan.finals[h]
	wantStage := driver.StageFragmentShader | driver.StageVertexShader
	if final.Stage != wantStage {
		t.Errorf("final Stage = %#x, want %#x", final.Stage, wantStage)
	}
}

func TestWriteThenReadEmitsBarrier(t *testing.T) {
	_, _, g := testRig(t)
	n, _ := g.Transient(testImageDesc("scratch"))

	written, err := g.AddPass("produce", KindCompute).Write(n, storageWrite)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	g.AddPass("consume", KindCompute).Read(written, sampledRead)

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if plan.Items() != 2 {
		t.Fatalf("Items() = %d, want 2", plan.Items())
	}
	barriers := plan.items[1].imageBarriers
	if len(barriers) != 1 {
		t.Fatalf("consumer carries %d image barriers, want 1", len(barriers))
	}
	b := barriers[0]
	if b.Src != storageWrite {
		t.Errorf("Src = %v, want the producer scope %v", b.Src, storageWrite)
	}
	if b.Dst != sampledRead {
		t.Errorf("Dst = %v, want the consumer scope %v", b.Dst, sampledRead)
	}
}

func TestPersistedStateSeedsFirstBarrier(t *testing.T) {
	dev, _, g := testRig(t)
	h, err := resource.NewImage(dev, testImageDesc("last-frame"))
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}
	attachmentState := driver.Sync{
		Stage:  driver.StageColorOutput,
		Access: driver.AccessColorWrite,
		Layout: driver.LayoutColorAttachment,
	}
	h.CommitState(attachmentState)

	n, err := g.Bind(h)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	g.AddPass("sample", KindCompute).Read(n, sampledRead)

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	barriers := plan.items[0].imageBarriers
	if len(barriers) != 1 {
		t.Fatalf("item carries %d image barriers, want 1", len(barriers))
	}
	if barriers[0].Src != attachmentState {
		t.Errorf("Src = %v, want the persisted state %v", barriers[0].Src, attachmentState)
	}
}

func TestBufferHazardEmitsBufferBarrier(t *testing.T) {
	_, _, g := testRig(t)
	n, err := g.TransientBuffer(&driver.BufferDesc{
		Label: "verts",
		Size:  4096,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageVertex,
	})
	if err != nil {
		t.Fatalf("TransientBuffer() error = %v", err)
	}

	written, err := g.AddPass("skin", KindCompute).Write(n, driver.Sync{
		Stage:  driver.StageComputeShader,
		Access: driver.AccessShaderWrite,
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	g.AddPass("fetch", KindCompute).Read(written, driver.Sync{
		Stage:  driver.StageVertexInput,
		Access: driver.AccessVertexRead,
	})

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	item := plan.items[1]
	if len(item.bufferBarriers) != 1 {
		t.Fatalf("consumer carries %d buffer barriers, want 1", len(item.bufferBarriers))
	}
	if len(item.imageBarriers) != 0 {
		t.Errorf("consumer carries %d image barriers, want 0", len(item.imageBarriers))
	}
	b := item.bufferBarriers[0]
	if b.Src.Access != driver.AccessShaderWrite || b.Dst.Access != driver.AccessVertexRead {
		t.Errorf("barrier = %v -> %v, want shader write -> vertex read", b.Src, b.Dst)
	}
}
