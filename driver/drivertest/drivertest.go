// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package drivertest provides an in-memory driver.Device for tests.
//
// The fake records every allocation, write, recorded command and submission,
// and exposes them as plain fields for assertions. Fences are signaled
// manually, which lets tests drive the completion-observation protocol
// step by step; set AutoSignal for tests that do not care.
package drivertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/driver"
)

// Op is one command recorded into an Encoder.
type Op struct {
	// Kind is one of "image-barriers", "buffer-barriers",
	// "begin-render-pass", "next-subpass", "end-render-pass",
	// "build-accel" or "copy-buffer-to-image".
	Kind string

	ImageBarriers  []driver.ImageBarrier
	BufferBarriers []driver.BufferBarrier
	RenderPass     *driver.RenderPassDesc
	Build          *driver.AccelBuildDesc
	CopySrc        driver.BufferID
	CopyDst        driver.ImageID
}

// Encoder records commands without executing anything.
type Encoder struct {
	Label     string
	Ops       []Op
	Discarded bool

	inPass bool
}

func (e *Encoder) TransitionImages(barriers []driver.ImageBarrier) error {
	e.Ops = append(e.Ops, Op{Kind: "image-barriers", ImageBarriers: barriers})
	return nil
}

func (e *Encoder) TransitionBuffers(barriers []driver.BufferBarrier) error {
	e.Ops = append(e.Ops, Op{Kind: "buffer-barriers", BufferBarriers: barriers})
	return nil
}

func (e *Encoder) BeginRenderPass(desc *driver.RenderPassDesc) error {
	if e.inPass {
		return fmt.Errorf("drivertest: render pass already open")
	}
	e.inPass = true
	e.Ops = append(e.Ops, Op{Kind: "begin-render-pass", RenderPass: desc})
	return nil
}

func (e *Encoder) NextSubpass() error {
	if !e.inPass {
		return fmt.Errorf("drivertest: NextSubpass outside render pass")
	}
	e.Ops = append(e.Ops, Op{Kind: "next-subpass"})
	return nil
}

func (e *Encoder) EndRenderPass() error {
	if !e.inPass {
		return fmt.Errorf("drivertest: EndRenderPass outside render pass")
	}
	e.inPass = false
	e.Ops = append(e.Ops, Op{Kind: "end-render-pass"})
	return nil
}

func (e *Encoder) BuildAccelStruct(desc *driver.AccelBuildDesc) error {
	e.Ops = append(e.Ops, Op{Kind: "build-accel", Build: desc})
	return nil
}

func (e *Encoder) CopyBufferToImage(src driver.BufferID, dst driver.ImageID, bytesPerRow, rows uint32) error {
	e.Ops = append(e.Ops, Op{Kind: "copy-buffer-to-image", CopySrc: src, CopyDst: dst})
	return nil
}

func (e *Encoder) Discard() { e.Discarded = true }

// Fence is a manually signaled completion fence.
type Fence struct {
	mu       sync.Mutex
	ch       chan struct{}
	signaled bool

	// Err, when set, is returned by Done and Wait.
	Err error
}

// NewFence returns an unsignaled fence.
func NewFence() *Fence {
	return &Fence{ch: make(chan struct{})}
}

// Signal marks the fence complete. Signaling twice is a no-op.
func (f *Fence) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signaled {
		f.signaled = true
		close(f.ch)
	}
}

func (f *Fence) Done() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	return f.signaled, nil
}

func (f *Fence) Wait(ctx context.Context) error {
	f.mu.Lock()
	err := f.Err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case <-f.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BufferWrite records one Device.WriteBuffer call.
type BufferWrite struct {
	Buffer driver.BufferID
	Offset uint64
	Data   []byte
}

// Device is an in-memory driver.Device.
//
// Zero-value fields give a device where every operation succeeds and fences
// must be signaled by the test. Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	// AutoSignal makes Submit return an already signaled fence.
	AutoSignal bool

	// FailAllocs makes the next n Create calls fail with
	// driver.ErrAllocationFailed.
	FailAllocs int

	// SubmitErr, when set, is returned by Submit.
	SubmitErr error

	nextID uint64

	Images  map[driver.ImageID]driver.ImageDesc
	Buffers map[driver.BufferID]driver.BufferDesc
	Accels  map[driver.AccelStructID]driver.AccelStructDesc

	DestroyedImages  []driver.ImageID
	DestroyedBuffers []driver.BufferID
	DestroyedAccels  []driver.AccelStructID

	Allocs       int
	BufferWrites []BufferWrite
	Encoders     []*Encoder
	Submitted    []*Encoder
	Fences       []*Fence
}

// NewDevice returns an empty fake device.
func NewDevice() *Device {
	return &Device{
		Images:  make(map[driver.ImageID]driver.ImageDesc),
		Buffers: make(map[driver.BufferID]driver.BufferDesc),
		Accels:  make(map[driver.AccelStructID]driver.AccelStructDesc),
	}
}

func (d *Device) allocate() (uint64, error) {
	if d.FailAllocs > 0 {
		d.FailAllocs--
		return 0, driver.ErrAllocationFailed
	}
	d.nextID++
	d.Allocs++
	return d.nextID, nil
}

func (d *Device) CreateImage(desc *driver.ImageDesc) (driver.ImageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.allocate()
	if err != nil {
		return driver.InvalidID, err
	}
	d.Images[driver.ImageID(id)] = *desc
	return driver.ImageID(id), nil
}

func (d *Device) CreateBuffer(desc *driver.BufferDesc) (driver.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.allocate()
	if err != nil {
		return driver.InvalidID, err
	}
	d.Buffers[driver.BufferID(id)] = *desc
	return driver.BufferID(id), nil
}

func (d *Device) CreateAccelStruct(desc *driver.AccelStructDesc) (driver.AccelStructID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.allocate()
	if err != nil {
		return driver.InvalidID, err
	}
	d.Accels[driver.AccelStructID(id)] = *desc
	return driver.AccelStructID(id), nil
}

func (d *Device) DestroyImage(id driver.ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Images, id)
	d.DestroyedImages = append(d.DestroyedImages, id)
}

func (d *Device) DestroyBuffer(id driver.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Buffers, id)
	d.DestroyedBuffers = append(d.DestroyedBuffers, id)
}

func (d *Device) DestroyAccelStruct(id driver.AccelStructID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Accels, id)
	d.DestroyedAccels = append(d.DestroyedAccels, id)
}

func (d *Device) WriteBuffer(id driver.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Buffers[id]; !ok {
		return driver.ErrInvalidHandle
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.BufferWrites = append(d.BufferWrites, BufferWrite{Buffer: id, Offset: offset, Data: cp})
	return nil
}

func (d *Device) WriteImage(id driver.ImageID, data []byte, bytesPerRow, rows uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Images[id]; !ok {
		return driver.ErrInvalidHandle
	}
	return nil
}

func (d *Device) NewEncoder(label string) (driver.Encoder, error) {
	e := &Encoder{Label: label}
	d.mu.Lock()
	d.Encoders = append(d.Encoders, e)
	d.mu.Unlock()
	return e, nil
}

func (d *Device) Submit(enc driver.Encoder) (driver.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SubmitErr != nil {
		return nil, d.SubmitErr
	}
	f := NewFence()
	if d.AutoSignal {
		f.Signal()
	}
	d.Submitted = append(d.Submitted, enc.(*Encoder))
	d.Fences = append(d.Fences, f)
	return f, nil
}
