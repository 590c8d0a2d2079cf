// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "context"

// Device is the allocation and submission boundary of a graphics backend.
//
// Implementations must be safe for concurrent use: the resource pool and
// several executors may allocate and submit from different goroutines.
//
// Resource lifecycle:
//   - Resources are created via Create* methods and identified by opaque IDs.
//   - Resources must be explicitly destroyed via Destroy* methods.
//   - Destroying a resource still referenced by in-flight work is undefined
//     behavior; the resource layer defers destruction until completion.
type Device interface {
	// CreateImage allocates a GPU image. Returns ErrAllocationFailed
	// (possibly wrapped) when the descriptor cannot be satisfied.
	CreateImage(desc *ImageDesc) (ImageID, error)

	// CreateBuffer allocates a GPU buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// CreateAccelStruct allocates acceleration structure storage.
	// Backends without ray tracing return ErrUnsupported.
	CreateAccelStruct(desc *AccelStructDesc) (AccelStructID, error)

	// DestroyImage releases an image. Unknown IDs are ignored.
	DestroyImage(id ImageID)

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// DestroyAccelStruct releases an acceleration structure. Unknown IDs are
	// ignored.
	DestroyAccelStruct(id AccelStructID)

	// WriteBuffer copies data into a buffer at the given byte offset. The
	// write is ordered before any subsequently submitted commands.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// WriteImage copies tightly rowed pixel data into mip level zero of an
	// image. The write is ordered before any subsequently submitted commands.
	WriteImage(id ImageID, data []byte, bytesPerRow, rows uint32) error

	// NewEncoder begins recording a command stream.
	NewEncoder(label string) (Encoder, error)

	// Submit finishes the encoder and submits its commands to the queue.
	// The returned Fence observes GPU completion of exactly this submission.
	// A failed submission returns ErrDeviceLost (possibly wrapped) when the
	// device is gone.
	Submit(enc Encoder) (Fence, error)
}

// Encoder records ordered GPU commands for one submission.
//
// An Encoder is not safe for concurrent use; the executor records from a
// single goroutine. After Submit or Discard the encoder must not be used.
type Encoder interface {
	// TransitionImages records image memory barriers, including layout
	// transitions and queue ownership transfers.
	TransitionImages(barriers []ImageBarrier) error

	// TransitionBuffers records buffer memory barriers.
	TransitionBuffers(barriers []BufferBarrier) error

	// BeginRenderPass opens a native render pass. Draw commands recorded by
	// pass callbacks between BeginRenderPass and EndRenderPass target the
	// described attachments.
	BeginRenderPass(desc *RenderPassDesc) error

	// NextSubpass advances to the next merged subpass of the open render
	// pass. Backends without native subpasses may treat this as a no-op.
	NextSubpass() error

	// EndRenderPass closes the open render pass.
	EndRenderPass() error

	// BuildAccelStruct records an acceleration structure build or update.
	// Backends without ray tracing return ErrUnsupported.
	BuildAccelStruct(desc *AccelBuildDesc) error

	// CopyBufferToImage records a tightly rowed buffer-to-image copy into mip
	// level zero.
	CopyBufferToImage(src BufferID, dst ImageID, bytesPerRow, rows uint32) error

	// Discard abandons the recording; nothing is submitted.
	Discard()
}

// Fence observes completion of one submission.
//
// A Fence is safe for concurrent use.
type Fence interface {
	// Done polls completion without blocking.
	Done() (bool, error)

	// Wait blocks until the submission completes or ctx is done.
	Wait(ctx context.Context) error
}
