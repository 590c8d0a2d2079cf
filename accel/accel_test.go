// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package accel

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/driver/drivertest"
	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
)

func testRig(t *testing.T) (*drivertest.Device, *pool.Pool, *framegraph.CommandChain) {
	t.Helper()
	dev := drivertest.NewDevice()
	dev.AutoSignal = true
	p := pool.New(dev, pool.Config{})
	return dev, p, framegraph.NewCommandChain(dev, p, framegraph.DefaultOptions())
}

func newGraph(t *testing.T, dev *drivertest.Device, p *pool.Pool) *framegraph.Graph {
	t.Helper()
	g, err := framegraph.New(framegraph.Config{Device: dev, Pool: p})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func newTarget(t *testing.T, dev *drivertest.Device, kind driver.AccelStructKind) *resource.Handle {
	t.Helper()
	h, err := resource.NewAccelStruct(dev, &driver.AccelStructDesc{
		Label: "accel",
		Kind:  kind,
		Size:  4096,
	})
	if err != nil {
		t.Fatalf("NewAccelStruct() error = %v", err)
	}
	return h
}

func triangleGeometry(t *testing.T, g *framegraph.Graph) *Geometry {
	t.Helper()
	verts, err := g.TransientBuffer(&driver.BufferDesc{
		Label: "verts",
		Size:  36 * 8,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageStorage,
	})
	if err != nil {
		t.Fatalf("TransientBuffer() error = %v", err)
	}
	indices, err := g.TransientBuffer(&driver.BufferDesc{
		Label: "indices",
		Size:  36 * 4,
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageStorage,
	})
	if err != nil {
		t.Fatalf("TransientBuffer() error = %v", err)
	}
	return &Geometry{
		Vertices:     verts,
		VertexCount:  36,
		VertexStride: 8,
		VertexFormat: gputypes.VertexFormatFloat32x2,
		Indices:      indices,
		IndexCount:   36,
	}
}

// buildOp finds the recorded acceleration structure build, failing when the
// submission carries none.
func buildOp(t *testing.T, dev *drivertest.Device) *driver.AccelBuildDesc {
	t.Helper()
	if len(dev.Submitted) == 0 {
		t.Fatal("nothing submitted")
	}
	for _, op := range dev.Submitted[len(dev.Submitted)-1].Ops {
		if op.Kind == "build-accel" {
			return op.Build
		}
	}
	t.Fatal("no build-accel recorded")
	return nil
}

func TestBuildBottomLevel(t *testing.T) {
	dev, p, chain := testRig(t)
	g := newGraph(t, dev, p)
	target := newTarget(t, dev, driver.AccelBottomLevel)
	geom := triangleGeometry(t, g)

	node, err := Build(g, target, geom)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if node.Version() != 1 {
		t.Errorf("built Version() = %d, want 1", node.Version())
	}

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	sub, err := chain.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := sub.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	build := buildOp(t, dev)
	if build.Update {
		t.Error("full build recorded as update")
	}
	if build.Kind != driver.AccelBottomLevel {
		t.Errorf("Kind = %v, want AccelBottomLevel", build.Kind)
	}
	if build.Dst != target.AccelStructID() {
		t.Errorf("Dst = %v, want %v", build.Dst, target.AccelStructID())
	}
	if build.VertexCount != 36 || build.IndexCount != 36 {
		t.Errorf("counts = %d/%d, want 36/36", build.VertexCount, build.IndexCount)
	}
	if build.VertexBuffer == driver.InvalidID || build.IndexBuffer == driver.InvalidID {
		t.Error("geometry buffers not resolved to backend IDs")
	}
}

func TestUpdateRefitsCompatibleGeometry(t *testing.T) {
	dev, p, chain := testRig(t)
	target := newTarget(t, dev, driver.AccelBottomLevel)

	g := newGraph(t, dev, p)
	if _, err := Build(g, target, triangleGeometry(t, g)); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	sub, err := chain.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := sub.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Same topology next frame: a refit, not a rebuild.
	g2 := newGraph(t, dev, p)
	if _, err := Update(g2, target, triangleGeometry(t, g2)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	plan2, err := g2.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := chain.Execute(context.Background(), plan2); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if build := buildOp(t, dev); !build.Update {
		t.Error("refit recorded as full build")
	}
}

func TestUpdateRejectsIncompatibleGeometry(t *testing.T) {
	dev, p, _ := testRig(t)
	target := newTarget(t, dev, driver.AccelBottomLevel)

	g := newGraph(t, dev, p)
	if _, err := Build(g, target, triangleGeometry(t, g)); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	g.Discard()

	g2 := newGraph(t, dev, p)
	geom := triangleGeometry(t, g2)
	geom.VertexCount = 72
	if _, err := Update(g2, target, geom); !errors.Is(err, ErrIncompatibleGeometry) {
		t.Errorf("Update() error = %v, want ErrIncompatibleGeometry", err)
	}
	g2.Discard()
}

func TestUpdateBeforeBuild(t *testing.T) {
	dev, p, _ := testRig(t)
	target := newTarget(t, dev, driver.AccelBottomLevel)

	g := newGraph(t, dev, p)
	if _, err := Update(g, target, triangleGeometry(t, g)); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Update() error = %v, want ErrNotBuilt", err)
	}
	g.Discard()
}

func TestBuildTopLevel(t *testing.T) {
	dev, p, chain := testRig(t)
	target := newTarget(t, dev, driver.AccelTopLevel)

	g := newGraph(t, dev, p)
	instances, err := g.TransientBuffer(&driver.BufferDesc{
		Label: "instances",
		Size:  4 * 64,
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		t.Fatalf("TransientBuffer() error = %v", err)
	}
	if _, err := Build(g, target, &Geometry{Instances: instances, InstanceCount: 4}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	plan, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := chain.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	build := buildOp(t, dev)
	if build.Kind != driver.AccelTopLevel {
		t.Errorf("Kind = %v, want AccelTopLevel", build.Kind)
	}
	if build.InstanceCount != 4 {
		t.Errorf("InstanceCount = %d, want 4", build.InstanceCount)
	}
	if build.InstanceBuffer == driver.InvalidID {
		t.Error("instance buffer not resolved to a backend ID")
	}
}

func TestBuildRejectsNonAccelTarget(t *testing.T) {
	dev, p, _ := testRig(t)
	g := newGraph(t, dev, p)

	img, err := resource.NewImage(dev, &driver.ImageDesc{
		Label:  "img",
		Size:   gputypes.Extent3D{Width: 4, Height: 4},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}
	if _, err := Build(g, img, triangleGeometry(t, g)); !errors.Is(err, ErrNotAccelStruct) {
		t.Errorf("Build(image target) error = %v, want ErrNotAccelStruct", err)
	}
	if _, err := Build(g, nil, triangleGeometry(t, g)); !errors.Is(err, ErrNotAccelStruct) {
		t.Errorf("Build(nil target) error = %v, want ErrNotAccelStruct", err)
	}
	g.Discard()
}

func TestBuildValidatesGeometry(t *testing.T) {
	dev, p, _ := testRig(t)
	g := newGraph(t, dev, p)
	blas := newTarget(t, dev, driver.AccelBottomLevel)
	tlas := newTarget(t, dev, driver.AccelTopLevel)

	if _, err := Build(g, blas, nil); !errors.Is(err, ErrBadGeometry) {
		t.Errorf("Build(nil geometry) error = %v, want ErrBadGeometry", err)
	}
	if _, err := Build(g, blas, &Geometry{VertexCount: 3}); !errors.Is(err, ErrBadGeometry) {
		t.Errorf("Build(no vertex buffer) error = %v, want ErrBadGeometry", err)
	}

	geom := triangleGeometry(t, g)
	geom.Indices = framegraph.Node{}
	if _, err := Build(g, blas, geom); !errors.Is(err, ErrBadGeometry) {
		t.Errorf("Build(index count, no buffer) error = %v, want ErrBadGeometry", err)
	}

	if _, err := Build(g, tlas, &Geometry{}); !errors.Is(err, ErrBadGeometry) {
		t.Errorf("Build(no instances) error = %v, want ErrBadGeometry", err)
	}
	g.Discard()
}
