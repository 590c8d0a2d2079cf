// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource provides shared-ownership handles to GPU resources.
//
// A Handle outlives any single render graph: it is reference counted, and it
// carries the resource's persisted synchronization state (last access stage,
// image layout, owning queue) between graphs and frames. A graph reads that
// state when the resource is first bound; only the executor writes it back,
// after a submission's completion has been observed. Concurrent unresolved
// graphs on one handle are rejected at bind time, which reduces the
// state-commit race to a single writer at a time.
package resource

import (
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/driver"
)

// Kind identifies what a handle refers to.
type Kind uint8

// Handle kinds.
const (
	// KindImage is a GPU image (texture).
	KindImage Kind = iota

	// KindBuffer is a GPU buffer.
	KindBuffer

	// KindAccelStruct is a ray-tracing acceleration structure.
	KindAccelStruct
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindBuffer:
		return "Buffer"
	case KindAccelStruct:
		return "AccelStruct"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Handle is a shared-ownership identity for one GPU resource.
//
// Handle is safe for concurrent use. Ownership follows Retain/Release
// reference counting; the last Release destroys the underlying device
// resource. Holders that hand a resource to GPU work must keep a reference
// until completion is observed.
type Handle struct {
	mu sync.Mutex

	dev   driver.Device
	kind  Kind
	label string

	image driver.ImageID
	buf   driver.BufferID
	accel driver.AccelStructID

	imageDesc *driver.ImageDesc
	bufDesc   *driver.BufferDesc
	accelDesc *driver.AccelStructDesc

	// state is the persisted synchronization state: the last Sync scope a
	// completed submission left the resource in.
	state driver.Sync

	// owner is the unresolved graph the handle is checked out to, nil when
	// free.
	owner any

	// geom remembers the geometry shape an acceleration structure was last
	// built with, opaque to this package.
	geom any

	refs      int32
	destroyed bool
}

// NewImage allocates an image and wraps it in a handle holding one reference.
func NewImage(dev driver.Device, desc *driver.ImageDesc) (*Handle, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if desc == nil {
		return nil, ErrNilDesc
	}
	d := *desc
	d.Normalize()
	id, err := dev.CreateImage(&d)
	if err != nil {
		return nil, fmt.Errorf("resource: create image %q: %w", d.Label, err)
	}
	return &Handle{
		dev:       dev,
		kind:      KindImage,
		label:     d.Label,
		image:     id,
		imageDesc: &d,
		state:     driver.Sync{Layout: driver.LayoutUndefined},
		refs:      1,
	}, nil
}

// NewBuffer allocates a buffer and wraps it in a handle holding one reference.
func NewBuffer(dev driver.Device, desc *driver.BufferDesc) (*Handle, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if desc == nil {
		return nil, ErrNilDesc
	}
	d := *desc
	id, err := dev.CreateBuffer(&d)
	if err != nil {
		return nil, fmt.Errorf("resource: create buffer %q: %w", d.Label, err)
	}
	return &Handle{
		dev:     dev,
		kind:    KindBuffer,
		label:   d.Label,
		buf:     id,
		bufDesc: &d,
		refs:    1,
	}, nil
}

// NewAccelStruct allocates acceleration structure storage and wraps it in a
// handle holding one reference.
func NewAccelStruct(dev driver.Device, desc *driver.AccelStructDesc) (*Handle, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if desc == nil {
		return nil, ErrNilDesc
	}
	d := *desc
	id, err := dev.CreateAccelStruct(&d)
	if err != nil {
		return nil, fmt.Errorf("resource: create acceleration structure %q: %w", d.Label, err)
	}
	return &Handle{
		dev:       dev,
		kind:      KindAccelStruct,
		label:     d.Label,
		accel:     id,
		accelDesc: &d,
		refs:      1,
	}, nil
}

// Kind returns what the handle refers to.
func (h *Handle) Kind() Kind { return h.kind }

// Label returns the debug name the resource was created with.
func (h *Handle) Label() string { return h.label }

// ImageID returns the backend image ID, or InvalidID for non-images.
func (h *Handle) ImageID() driver.ImageID { return h.image }

// BufferID returns the backend buffer ID, or InvalidID for non-buffers.
func (h *Handle) BufferID() driver.BufferID { return h.buf }

// AccelStructID returns the backend acceleration structure ID, or InvalidID
// for other kinds.
func (h *Handle) AccelStructID() driver.AccelStructID { return h.accel }

// ImageDesc returns a copy of the image descriptor, or nil for non-images.
func (h *Handle) ImageDesc() *driver.ImageDesc {
	if h.imageDesc == nil {
		return nil
	}
	d := *h.imageDesc
	return &d
}

// BufferDesc returns a copy of the buffer descriptor, or nil for non-buffers.
func (h *Handle) BufferDesc() *driver.BufferDesc {
	if h.bufDesc == nil {
		return nil
	}
	d := *h.bufDesc
	return &d
}

// AccelStructDesc returns a copy of the acceleration structure descriptor, or
// nil for other kinds.
func (h *Handle) AccelStructDesc() *driver.AccelStructDesc {
	if h.accelDesc == nil {
		return nil
	}
	d := *h.accelDesc
	return &d
}

// State returns the persisted synchronization state: the scope the last
// completed submission left the resource in. A graph reads it when building
// the first barrier that touches the resource.
func (h *Handle) State() driver.Sync {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// CommitState persists the resource's final synchronization state. Only the
// executor calls this, and only after a submission's completion has been
// observed; the next graph that binds the handle sees the committed state.
func (h *Handle) CommitState(s driver.Sync) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Checkout claims the handle for one unresolved graph. It fails with
// ErrAlreadyBound when a different owner holds the claim, and is idempotent
// for the same owner.
func (h *Handle) Checkout(owner any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	if h.owner != nil && h.owner != owner {
		return ErrAlreadyBound
	}
	h.owner = owner
	return nil
}

// Checkin releases the claim held by owner. Claims held by a different owner
// are left untouched.
func (h *Handle) Checkin(owner any) {
	h.mu.Lock()
	if h.owner == owner {
		h.owner = nil
	}
	h.mu.Unlock()
}

// Geometry returns the opaque geometry shape recorded by the last
// acceleration structure build, or nil.
func (h *Handle) Geometry() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.geom
}

// SetGeometry records the geometry shape an acceleration structure was built
// with, for compatibility checks on later updates.
func (h *Handle) SetGeometry(g any) {
	h.mu.Lock()
	h.geom = g
	h.mu.Unlock()
}

// Retain adds a reference.
func (h *Handle) Retain() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// Release drops a reference. The last release destroys the underlying device
// resource; callers that submitted GPU work referencing the handle must hold
// their reference until that submission's completion is observed.
func (h *Handle) Release() {
	h.mu.Lock()
	h.refs--
	last := h.refs == 0 && !h.destroyed
	if last {
		h.destroyed = true
	}
	h.mu.Unlock()

	if !last {
		return
	}
	switch h.kind {
	case KindImage:
		h.dev.DestroyImage(h.image)
	case KindBuffer:
		h.dev.DestroyBuffer(h.buf)
	case KindAccelStruct:
		h.dev.DestroyAccelStruct(h.accel)
	}
}

// Destroyed reports whether the last reference has been released.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}
