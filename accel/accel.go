// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package accel emits acceleration structure build and update passes.
//
// The builder is a specialized pass producer: Build and Update record one
// pass through the ordinary graph machinery, declaring a write on the target
// structure and reads over the referenced geometry buffers. Geometry is
// passed by reference and never consumed, so callers may rebuild every frame
// from the same buffers.
package accel

import (
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/resource"
	"github.com/gogpu/gputypes"
)

// Geometry references the buffers an acceleration structure is built from.
// Bottom-level structures consume Vertices (and optionally Indices);
// top-level structures consume Instances. The referenced nodes must belong
// to the graph the build is recorded into.
type Geometry struct {
	// Vertices is the vertex buffer for bottom-level builds.
	Vertices framegraph.Node

	// VertexCount is the number of vertices.
	VertexCount uint32

	// VertexStride is the byte distance between consecutive vertices.
	VertexStride uint32

	// VertexFormat is the position attribute format.
	VertexFormat gputypes.VertexFormat

	// Indices is an optional index buffer for bottom-level builds.
	Indices framegraph.Node

	// IndexCount is the number of indices; zero means non-indexed.
	IndexCount uint32

	// Instances is the instance buffer for top-level builds.
	Instances framegraph.Node

	// InstanceCount is the number of instances.
	InstanceCount uint32
}

// shape is the topology a structure was last built with, remembered on the
// handle so Update can verify compatibility.
type shape struct {
	kind          driver.AccelStructKind
	vertexCount   uint32
	vertexStride  uint32
	vertexFormat  gputypes.VertexFormat
	indexCount    uint32
	instanceCount uint32
}

func shapeOf(kind driver.AccelStructKind, geom *Geometry) shape {
	return shape{
		kind:          kind,
		vertexCount:   geom.VertexCount,
		vertexStride:  geom.VertexStride,
		vertexFormat:  geom.VertexFormat,
		indexCount:    geom.IndexCount,
		instanceCount: geom.InstanceCount,
	}
}

// compatible reports whether an update with next may refit a structure built
// with s. Updates keep the structure's internal layout, so every count,
// stride and format must match exactly.
func (s shape) compatible(next shape) bool { return s == next }

// Build records a full build of target from geom and returns the node for
// the built structure, usable as a read dependency of later trace passes.
func Build(g *framegraph.Graph, target *resource.Handle, geom *Geometry) (framegraph.Node, error) {
	return record(g, target, geom, false)
}

// Update records a refit of target from geom. The geometry topology must
// match what the structure was last built with; a mismatch fails with
// ErrIncompatibleGeometry before anything is recorded.
func Update(g *framegraph.Graph, target *resource.Handle, geom *Geometry) (framegraph.Node, error) {
	return record(g, target, geom, true)
}

func record(g *framegraph.Graph, target *resource.Handle, geom *Geometry, update bool) (framegraph.Node, error) {
	if target == nil || target.Kind() != resource.KindAccelStruct {
		return framegraph.Node{}, ErrNotAccelStruct
	}
	desc := target.AccelStructDesc()
	if err := validate(desc.Kind, geom); err != nil {
		return framegraph.Node{}, err
	}

	want := shapeOf(desc.Kind, geom)
	if update {
		prev, ok := target.Geometry().(shape)
		if !ok {
			return framegraph.Node{}, fmt.Errorf("%w: %s", ErrNotBuilt, target.Label())
		}
		if !prev.compatible(want) {
			return framegraph.Node{}, fmt.Errorf("%w: %s built with %+v, update wants %+v",
				ErrIncompatibleGeometry, target.Label(), prev, want)
		}
	}

	node, err := g.Bind(target)
	if err != nil {
		return framegraph.Node{}, err
	}

	verb := "build"
	if update {
		verb = "update"
	}
	b := g.AddPass(verb+" "+target.Label(), framegraph.KindAccelBuild)

	readSync := driver.Sync{Stage: driver.StageAccelBuild, Access: driver.AccessAccelRead}
	build := &driver.AccelBuildDesc{
		Label:  target.Label(),
		Dst:    target.AccelStructID(),
		Kind:   desc.Kind,
		Update: update,
	}
	if desc.Kind == driver.AccelBottomLevel {
		b.Read(geom.Vertices, readSync)
		build.VertexBuffer = geom.Vertices.Handle().BufferID()
		build.VertexCount = geom.VertexCount
		build.VertexStride = geom.VertexStride
		if geom.IndexCount > 0 {
			b.Read(geom.Indices, readSync)
			build.IndexBuffer = geom.Indices.Handle().BufferID()
			build.IndexCount = geom.IndexCount
		}
	} else {
		b.Read(geom.Instances, readSync)
		build.InstanceBuffer = geom.Instances.Handle().BufferID()
		build.InstanceCount = geom.InstanceCount
	}

	out, err := b.Write(node, driver.Sync{
		Stage:  driver.StageAccelBuild,
		Access: driver.AccessAccelWrite,
	})
	if err != nil {
		return framegraph.Node{}, err
	}
	err = b.Execute(func(rc *framegraph.RecordContext) error {
		return rc.Encoder().BuildAccelStruct(build)
	})
	if err != nil {
		return framegraph.Node{}, err
	}

	target.SetGeometry(want)
	return out, nil
}

// validate checks that geom carries what the structure kind needs.
func validate(kind driver.AccelStructKind, geom *Geometry) error {
	if geom == nil {
		return ErrBadGeometry
	}
	switch kind {
	case driver.AccelBottomLevel:
		if !geom.Vertices.Valid() || geom.VertexCount == 0 || geom.VertexStride == 0 {
			return fmt.Errorf("%w: bottom-level build needs vertices", ErrBadGeometry)
		}
		if geom.IndexCount > 0 && !geom.Indices.Valid() {
			return fmt.Errorf("%w: index count without index buffer", ErrBadGeometry)
		}
	case driver.AccelTopLevel:
		if !geom.Instances.Valid() || geom.InstanceCount == 0 {
			return fmt.Errorf("%w: top-level build needs instances", ErrBadGeometry)
		}
	}
	return nil
}
