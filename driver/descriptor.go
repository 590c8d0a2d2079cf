// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "github.com/gogpu/gputypes"

// ImageID is an opaque backend handle to a GPU image.
type ImageID uint64

// BufferID is an opaque backend handle to a GPU buffer.
type BufferID uint64

// AccelStructID is an opaque backend handle to an acceleration structure.
type AccelStructID uint64

// InvalidID is the zero value, representing no resource.
const InvalidID = 0

// ImageDesc describes a GPU image to allocate.
type ImageDesc struct {
	// Label is an optional debug name passed through to the backend.
	Label string

	// Size is the image extent. DepthOrArrayLayers of zero means 1.
	Size gputypes.Extent3D

	// Format is the pixel format.
	Format gputypes.TextureFormat

	// Usage declares every way the image will be used.
	Usage gputypes.TextureUsage

	// MipLevels is the mip chain length. Zero means 1.
	MipLevels uint32

	// Samples is the MSAA sample count. Zero means 1.
	Samples uint32
}

// Normalize fills defaulted fields in place.
func (d *ImageDesc) Normalize() {
	if d.Size.DepthOrArrayLayers == 0 {
		d.Size.DepthOrArrayLayers = 1
	}
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.Samples == 0 {
		d.Samples = 1
	}
}

// Compatible reports whether an image of this descriptor can stand in for one
// of descriptor want: identical format, sample count and mip count, a usage
// superset, and an extent at least as large in every dimension. Labels are
// ignored.
func (d *ImageDesc) Compatible(want *ImageDesc) bool {
	return d.Format == want.Format &&
		d.Samples == want.Samples &&
		d.MipLevels == want.MipLevels &&
		d.Usage&want.Usage == want.Usage &&
		d.Size.Width >= want.Size.Width &&
		d.Size.Height >= want.Size.Height &&
		d.Size.DepthOrArrayLayers >= want.Size.DepthOrArrayLayers
}

// Equal reports whether two image descriptors request the same resource,
// ignoring labels.
func (d *ImageDesc) Equal(want *ImageDesc) bool {
	return d.Format == want.Format &&
		d.Samples == want.Samples &&
		d.MipLevels == want.MipLevels &&
		d.Usage == want.Usage &&
		d.Size == want.Size
}

// BufferDesc describes a GPU buffer to allocate.
type BufferDesc struct {
	// Label is an optional debug name passed through to the backend.
	Label string

	// Size is the buffer length in bytes.
	Size uint64

	// Usage declares every way the buffer will be used.
	Usage gputypes.BufferUsage
}

// Compatible reports whether a buffer of this descriptor can stand in for one
// of descriptor want: a usage superset and at least the requested size.
func (d *BufferDesc) Compatible(want *BufferDesc) bool {
	return d.Usage&want.Usage == want.Usage && d.Size >= want.Size
}

// Equal reports whether two buffer descriptors request the same resource,
// ignoring labels.
func (d *BufferDesc) Equal(want *BufferDesc) bool {
	return d.Usage == want.Usage && d.Size == want.Size
}

// AccelStructKind distinguishes bottom-level (geometry) from top-level
// (instance) acceleration structures.
type AccelStructKind uint8

// Acceleration structure kinds.
const (
	// AccelBottomLevel holds triangle geometry.
	AccelBottomLevel AccelStructKind = iota

	// AccelTopLevel holds instances of bottom-level structures.
	AccelTopLevel
)

// String returns the kind name.
func (k AccelStructKind) String() string {
	if k == AccelTopLevel {
		return "TopLevel"
	}
	return "BottomLevel"
}

// AccelStructDesc describes an acceleration structure to allocate.
type AccelStructDesc struct {
	// Label is an optional debug name passed through to the backend.
	Label string

	// Kind selects bottom-level or top-level.
	Kind AccelStructKind

	// Size is the backing storage size in bytes, as reported by the
	// backend's size query for the geometry being built.
	Size uint64
}

// Equal reports whether two descriptors request the same structure,
// ignoring labels.
func (d *AccelStructDesc) Equal(want *AccelStructDesc) bool {
	return d.Kind == want.Kind && d.Size == want.Size
}

// ColorAttachment binds one image as a render target color output.
type ColorAttachment struct {
	Image ImageID
	Load  gputypes.LoadOp
	Store gputypes.StoreOp
	Clear gputypes.Color
}

// DepthAttachment binds one image as the render target depth/stencil output.
type DepthAttachment struct {
	Image      ImageID
	Load       gputypes.LoadOp
	Store      gputypes.StoreOp
	ClearDepth float32
}

// RenderPassDesc describes one native render pass, possibly containing
// several merged subpasses.
type RenderPassDesc struct {
	Label     string
	Colors    []ColorAttachment
	Depth     *DepthAttachment
	Width     uint32
	Height    uint32
	Subpasses int
}

// AccelBuildDesc describes one acceleration structure build or update.
// Geometry buffers are referenced, never consumed; the same buffers may be
// passed to any number of builds.
type AccelBuildDesc struct {
	Label  string
	Dst    AccelStructID
	Kind   AccelStructKind
	Update bool

	// Bottom-level geometry.
	VertexBuffer BufferID
	VertexCount  uint32
	VertexStride uint32
	IndexBuffer  BufferID
	IndexCount   uint32

	// Top-level instances.
	InstanceBuffer BufferID
	InstanceCount  uint32
}
