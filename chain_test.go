// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/driver/drivertest"
	"github.com/gogpu/gputypes"
)

func TestExecuteEndToEnd(t *testing.T) {
	dev, p, g := testRig(t)
	chain := NewCommandChain(dev, p, DefaultOptions())

	a, err := g.Transient(testImageDesc("a"))
	if err != nil {
		t.Fatalf("Transient() error = %v", err)
	}
	b, err := g.Transient(testImageDesc("b"))
	if err != nil {
		t.Fatalf("Transient() error = %v", err)
	}

	a1, err := g.AddPass("draw", KindDraw).Color(0, a, gputypes.LoadOpClear, gputypes.StoreOpStore, gputypes.Color{})
	if err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	pb := g.AddPass("post", KindCompute).Read(a1, sampledRead)
	b1, err := pb.Write(b, storageWrite)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	g.AddPass("readback", KindTransfer).Read(b1, driver.Sync{
		Stage:  driver.StageTransfer,
		Access: driver.AccessTransferRead,
		Layout: driver.LayoutTransferSrc,
	})

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if plan.Items() != 3 {
		t.Fatalf("Items() = %d, want 3", plan.Items())
	}

	sub, err := chain.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(dev.Submitted) != 1 {
		t.Fatalf("submitted %d command streams, want 1", len(dev.Submitted))
	}

	var kinds []string
	for _, op := range dev.Submitted[0].Ops {
		kinds = append(kinds, op.Kind)
	}
	want := []string{
		"image-barriers",    // a: undefined -> color attachment
		"begin-render-pass", // draw
		"end-render-pass",
		"image-barriers", // a -> sampled, b: undefined -> storage
		"image-barriers", // b -> transfer source
	}
	if len(kinds) != len(want) {
		t.Fatalf("recorded ops = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("recorded ops = %v, want %v", kinds, want)
		}
	}
	if n := len(dev.Submitted[0].Ops[3].ImageBarriers); n != 2 {
		t.Errorf("post item carries %d image barriers, want 2", n)
	}

	// Nothing finalizes before completion is observed.
	if done, err := sub.Done(); err != nil || done {
		t.Fatalf("Done() = %v, %v before fence signal, want false, nil", done, err)
	}
	if chain.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1", chain.InFlight())
	}

	dev.Fences[0].Signal()
	if done, err := sub.Done(); err != nil || !done {
		t.Fatalf("Done() = %v, %v after fence signal, want true, nil", done, err)
	}
	if got := a.Handle().State().Layout; got != driver.LayoutShaderRead {
		t.Errorf("a resting layout = %v, want ShaderRead", got)
	}
	if got := b.Handle().State().Layout; got != driver.LayoutTransferSrc {
		t.Errorf("b resting layout = %v, want TransferSrc", got)
	}
	if chain.InFlight() != 0 {
		t.Errorf("InFlight() = %d after completion, want 0", chain.InFlight())
	}

	// Both transients are back in the pool and immediately reusable.
	allocs := dev.Allocs
	g2 := newGraph(t, dev, p, Options{})
	if _, err := g2.Transient(testImageDesc("a")); err != nil {
		t.Fatalf("Transient() after completion error = %v", err)
	}
	if _, err := g2.Transient(testImageDesc("b")); err != nil {
		t.Fatalf("Transient() after completion error = %v", err)
	}
	if dev.Allocs != allocs {
		t.Errorf("allocations = %d, want %d (transients must be reused)", dev.Allocs, allocs)
	}

	// The plan is spent.
	if _, err := chain.Execute(context.Background(), plan); !errors.Is(err, ErrExecuted) {
		t.Errorf("re-Execute() error = %v, want ErrExecuted", err)
	}
	if err := plan.Discard(); !errors.Is(err, ErrExecuted) {
		t.Errorf("Discard() of executed plan error = %v, want ErrExecuted", err)
	}
}

func TestPassBodyErrorAbortsSubmission(t *testing.T) {
	dev, p, g := testRig(t)
	chain := NewCommandChain(dev, p, DefaultOptions())

	n, _ := g.Transient(testImageDesc("scratch"))
	pb := g.AddPass("broken", KindCompute)
	if _, err := pb.Write(n, storageWrite); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	boom := errors.New("boom")
	pb.Execute(func(rc *RecordContext) error { return boom })

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	allocs := dev.Allocs

	_, err = chain.Execute(context.Background(), plan)
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want the pass body error", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("Execute() error = %q, want the pass name in it", err)
	}
	if len(dev.Submitted) != 0 {
		t.Errorf("submitted %d command streams after recording failure, want 0", len(dev.Submitted))
	}
	if len(dev.Encoders) != 1 || !dev.Encoders[0].Discarded {
		t.Error("failed recording did not discard its encoder")
	}

	// The plan is abandoned; its transient is reusable right away.
	if _, err := chain.Execute(context.Background(), plan); !errors.Is(err, ErrDiscarded) {
		t.Errorf("re-Execute() error = %v, want ErrDiscarded", err)
	}
	g2 := newGraph(t, dev, p, Options{})
	if _, err := g2.Transient(testImageDesc("scratch")); err != nil {
		t.Fatalf("Transient() after abort error = %v", err)
	}
	if dev.Allocs != allocs {
		t.Errorf("allocations = %d, want %d", dev.Allocs, allocs)
	}
}

func TestSubmitFailurePropagates(t *testing.T) {
	dev, p, g := testRig(t)
	dev.SubmitErr = driver.ErrDeviceLost
	chain := NewCommandChain(dev, p, DefaultOptions())

	g.AddPass("noop", KindCompute).Execute(nil)
	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := chain.Execute(context.Background(), plan); !errors.Is(err, driver.ErrDeviceLost) {
		t.Fatalf("Execute() error = %v, want ErrDeviceLost", err)
	}
	if _, err := chain.Execute(context.Background(), plan); !errors.Is(err, ErrDiscarded) {
		t.Errorf("re-Execute() error = %v, want ErrDiscarded", err)
	}
}

func TestDiscardedPlanRejected(t *testing.T) {
	dev, p, g := testRig(t)
	chain := NewCommandChain(dev, p, DefaultOptions())

	g.AddPass("noop", KindCompute).Execute(nil)
	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := plan.Discard(); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if err := plan.Discard(); err != nil {
		t.Errorf("second Discard() error = %v, want nil", err)
	}

	if _, err := chain.Execute(context.Background(), plan); !errors.Is(err, ErrDiscarded) {
		t.Errorf("Execute() error = %v, want ErrDiscarded", err)
	}
	if _, err := chain.Execute(context.Background(), nil); !errors.Is(err, ErrDiscarded) {
		t.Errorf("Execute(nil) error = %v, want ErrDiscarded", err)
	}
}

func TestInFlightLimitThrottles(t *testing.T) {
	dev := drivertest.NewDevice()
	chain := NewCommandChain(dev, nil, Options{MaxInFlight: 1})

	newPlan := func(name string) *ExecutionPlan {
		g := newGraph(t, dev, nil, Options{})
		g.AddPass(name, KindCompute).Execute(nil)
		plan, err := g.Resolve()
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		return plan
	}

	sub1, err := chain.Execute(context.Background(), newPlan("first"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// The limit is reached; a dead context surfaces instead of blocking
	// forever, and the plan stays usable.
	plan2 := newPlan("second")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := chain.Execute(ctx, plan2); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() with dead context error = %v, want context.Canceled", err)
	}

	dev.Fences[0].Signal()
	sub2, err := chain.Execute(context.Background(), plan2)
	if err != nil {
		t.Fatalf("Execute() after completion error = %v", err)
	}
	if done, _ := sub1.Done(); !done {
		t.Error("first submission not completed after throttling past it")
	}
	if chain.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1", chain.InFlight())
	}

	dev.Fences[1].Signal()
	if err := sub2.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if chain.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", chain.InFlight())
	}
}

func TestMergedGroupRecordsSubpasses(t *testing.T) {
	dev, p, g := testRig(t)
	chain := NewCommandChain(dev, p, DefaultOptions())

	target, _ := g.Transient(testImageDesc("color"))
	v1, err := g.AddPass("opaque", KindDraw).Color(0, target, gputypes.LoadOpClear, gputypes.StoreOpStore, gputypes.Color{})
	if err != nil {
		t.Fatalf("Color() error = %v", err)
	}
	if _, err := g.AddPass("alpha", KindDraw).Color(0, v1, gputypes.LoadOpLoad, gputypes.StoreOpStore, gputypes.Color{}); err != nil {
		t.Fatalf("Color() error = %v", err)
	}

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := chain.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var kinds []string
	for _, op := range dev.Submitted[0].Ops {
		kinds = append(kinds, op.Kind)
	}
	want := []string{"image-barriers", "begin-render-pass", "next-subpass", "end-render-pass"}
	if len(kinds) != len(want) {
		t.Fatalf("recorded ops = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("recorded ops = %v, want %v", kinds, want)
		}
	}
}
