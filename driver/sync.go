// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "fmt"

// StageFlags is a bitmask of pipeline stages an access participates in.
type StageFlags uint32

// Pipeline stages.
const (
	// StageVertexInput covers index and vertex buffer fetch.
	StageVertexInput StageFlags = 1 << iota

	// StageVertexShader covers vertex shader reads.
	StageVertexShader

	// StageFragmentShader covers fragment shader reads.
	StageFragmentShader

	// StageColorOutput covers color attachment writes and blending.
	StageColorOutput

	// StageDepthStencil covers depth/stencil tests and writes.
	StageDepthStencil

	// StageComputeShader covers compute shader access.
	StageComputeShader

	// StageRayTracing covers ray-tracing shader access.
	StageRayTracing

	// StageAccelBuild covers acceleration structure build and update.
	StageAccelBuild

	// StageTransfer covers copy and blit operations.
	StageTransfer

	// StageHost covers host (CPU) access.
	StageHost
)

// StageNone is the empty stage mask.
const StageNone StageFlags = 0

// AccessFlags is a bitmask describing how memory is accessed at a stage.
type AccessFlags uint32

// Access kinds.
const (
	// AccessIndexRead is an index buffer fetch.
	AccessIndexRead AccessFlags = 1 << iota

	// AccessVertexRead is a vertex attribute fetch.
	AccessVertexRead

	// AccessUniformRead is a uniform buffer read.
	AccessUniformRead

	// AccessShaderRead is a sampled image or storage read in a shader.
	AccessShaderRead

	// AccessShaderWrite is a storage write in a shader.
	AccessShaderWrite

	// AccessColorRead is a color attachment read (blending).
	AccessColorRead

	// AccessColorWrite is a color attachment write.
	AccessColorWrite

	// AccessDepthRead is a depth/stencil attachment read.
	AccessDepthRead

	// AccessDepthWrite is a depth/stencil attachment write.
	AccessDepthWrite

	// AccessTransferRead is a copy source read.
	AccessTransferRead

	// AccessTransferWrite is a copy destination write.
	AccessTransferWrite

	// AccessAccelRead is an acceleration structure read (trace or build input).
	AccessAccelRead

	// AccessAccelWrite is an acceleration structure build output.
	AccessAccelWrite

	// AccessHostRead is a host read.
	AccessHostRead

	// AccessHostWrite is a host write.
	AccessHostWrite
)

// AccessNone is the empty access mask.
const AccessNone AccessFlags = 0

const writeAccessMask = AccessShaderWrite | AccessColorWrite | AccessDepthWrite |
	AccessTransferWrite | AccessAccelWrite | AccessHostWrite

// HasWrite reports whether the mask contains any write access.
func (a AccessFlags) HasWrite() bool { return a&writeAccessMask != 0 }

// ReadOnly reports whether the mask contains no write access.
func (a AccessFlags) ReadOnly() bool { return a&writeAccessMask == 0 }

// ImageLayout is the memory layout an image must be in for an access.
// Buffers have no layout; barriers on buffers ignore this field.
type ImageLayout uint8

// Image layouts.
const (
	// LayoutUndefined means the image contents are unspecified. Transitions
	// from LayoutUndefined discard contents.
	LayoutUndefined ImageLayout = iota

	// LayoutGeneral permits any access at reduced efficiency.
	LayoutGeneral

	// LayoutColorAttachment is optimal for color attachment output.
	LayoutColorAttachment

	// LayoutDepthStencilAttachment is optimal for depth/stencil output.
	LayoutDepthStencilAttachment

	// LayoutDepthStencilRead is optimal for depth/stencil sampling.
	LayoutDepthStencilRead

	// LayoutShaderRead is optimal for sampled reads in shaders.
	LayoutShaderRead

	// LayoutTransferSrc is optimal as a copy source.
	LayoutTransferSrc

	// LayoutTransferDst is optimal as a copy destination.
	LayoutTransferDst

	// LayoutPresent is required for presentation engines.
	LayoutPresent
)

// String returns the layout name.
func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutGeneral:
		return "General"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutDepthStencilAttachment:
		return "DepthStencilAttachment"
	case LayoutDepthStencilRead:
		return "DepthStencilRead"
	case LayoutShaderRead:
		return "ShaderRead"
	case LayoutTransferSrc:
		return "TransferSrc"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutPresent:
		return "Present"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(l))
	}
}

// QueueKind identifies the hardware queue family an operation runs on.
type QueueKind uint8

// Queue kinds.
const (
	// QueueGraphics is the universal graphics queue.
	QueueGraphics QueueKind = iota

	// QueueCompute is an async compute queue.
	QueueCompute

	// QueueTransfer is a dedicated transfer queue.
	QueueTransfer
)

// String returns the queue name.
func (q QueueKind) String() string {
	switch q {
	case QueueGraphics:
		return "Graphics"
	case QueueCompute:
		return "Compute"
	case QueueTransfer:
		return "Transfer"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(q))
	}
}

// Sync is a point-in-time synchronization scope for one resource: the stages
// that access it, how they access it, the image layout they require, and the
// queue that owns it. The scheduler compares consecutive Sync values to decide
// whether a barrier is needed; the resource layer persists the last Sync of a
// submission as the handle's state for the next graph.
type Sync struct {
	Stage  StageFlags
	Access AccessFlags
	Layout ImageLayout
	Queue  QueueKind
}

// HasWrite reports whether the scope contains any write access.
func (s Sync) HasWrite() bool { return s.Access.HasWrite() }

// String returns a compact description for logs.
func (s Sync) String() string {
	return fmt.Sprintf("{stage:%#x access:%#x layout:%s queue:%s}",
		uint32(s.Stage), uint32(s.Access), s.Layout, s.Queue)
}

// ImageBarrier is a computed synchronization transition on one image,
// including a layout transition and, when Src.Queue differs from Dst.Queue,
// a queue ownership transfer.
type ImageBarrier struct {
	Image ImageID
	Src   Sync
	Dst   Sync
}

// BufferBarrier is a computed synchronization transition on one buffer.
type BufferBarrier struct {
	Buffer BufferID
	Src    Sync
	Dst    Sync
}
