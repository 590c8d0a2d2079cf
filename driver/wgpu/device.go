// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements driver.Device over the gogpu WebGPU HAL.
//
// The backend tracks textures together with a default view so resolved plans
// can bind them as render attachments directly. WebGPU has no ray tracing:
// acceleration structure operations fail with driver.ErrUnsupported. It also
// has no native subpasses; merged groups record into a single render pass and
// NextSubpass is a no-op.
package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device adapts a hal.Device and hal.Queue to the driver boundary.
//
// Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	dev    hal.Device
	queue  hal.Queue
	nextID uint64

	images  map[driver.ImageID]*imageEntry
	buffers map[driver.BufferID]hal.Buffer
}

type imageEntry struct {
	tex  hal.Texture
	view hal.TextureView
	desc driver.ImageDesc
}

// New wraps a HAL device and queue.
func New(dev hal.Device, queue hal.Queue) *Device {
	return &Device{
		dev:     dev,
		queue:   queue,
		images:  make(map[driver.ImageID]*imageEntry),
		buffers: make(map[driver.BufferID]hal.Buffer),
	}
}

// halProvider is the optional escape hatch a gpucontext.DeviceProvider
// implements when its device is HAL-backed.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewFromProvider wraps the shared device of a gpucontext provider. The
// provider must expose its HAL device and queue through HalDevice/HalQueue.
func NewFromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	hp, ok := p.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider %T does not expose a HAL device", p)
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	return New(dev, queue), nil
}

func (d *Device) CreateImage(desc *driver.ImageDesc) (driver.ImageID, error) {
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: desc.Size.DepthOrArrayLayers,
		},
		MipLevelCount: desc.MipLevels,
		SampleCount:   desc.Samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return driver.InvalidID, fmt.Errorf("%w: create texture %q: %w",
			driver.ErrAllocationFailed, desc.Label, err)
	}
	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: desc.Label + " (view)",
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return driver.InvalidID, fmt.Errorf("%w: create texture view %q: %w",
			driver.ErrAllocationFailed, desc.Label, err)
	}

	d.mu.Lock()
	d.nextID++
	id := driver.ImageID(d.nextID)
	d.images[id] = &imageEntry{tex: tex, view: view, desc: *desc}
	d.mu.Unlock()
	return id, nil
}

func (d *Device) CreateBuffer(desc *driver.BufferDesc) (driver.BufferID, error) {
	buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return driver.InvalidID, fmt.Errorf("%w: create buffer %q: %w",
			driver.ErrAllocationFailed, desc.Label, err)
	}

	d.mu.Lock()
	d.nextID++
	id := driver.BufferID(d.nextID)
	d.buffers[id] = buf
	d.mu.Unlock()
	return id, nil
}

func (d *Device) CreateAccelStruct(desc *driver.AccelStructDesc) (driver.AccelStructID, error) {
	return driver.InvalidID, fmt.Errorf("%w: WebGPU has no acceleration structures", driver.ErrUnsupported)
}

func (d *Device) DestroyImage(id driver.ImageID) {
	d.mu.Lock()
	e, ok := d.images[id]
	delete(d.images, id)
	d.mu.Unlock()
	if !ok {
		return
	}
	d.dev.DestroyTextureView(e.view)
	d.dev.DestroyTexture(e.tex)
}

func (d *Device) DestroyBuffer(id driver.BufferID) {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if ok {
		d.dev.DestroyBuffer(buf)
	}
}

func (d *Device) DestroyAccelStruct(id driver.AccelStructID) {}

func (d *Device) WriteBuffer(id driver.BufferID, offset uint64, data []byte) error {
	buf, ok := d.buffer(id)
	if !ok {
		return driver.ErrInvalidHandle
	}
	d.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (d *Device) WriteImage(id driver.ImageID, data []byte, bytesPerRow, rows uint32) error {
	e, ok := d.image(id)
	if !ok {
		return driver.ErrInvalidHandle
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: e.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: rows},
		&hal.Extent3D{
			Width:              e.desc.Size.Width,
			Height:             e.desc.Size.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *Device) NewEncoder(label string) (driver.Encoder, error) {
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &Encoder{dev: d, enc: enc}, nil
}

func (d *Device) Submit(e driver.Encoder) (driver.Fence, error) {
	enc, ok := e.(*Encoder)
	if !ok {
		return nil, fmt.Errorf("wgpu: foreign encoder %T", e)
	}
	cmdBuf, err := enc.enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("%w: end encoding: %w", driver.ErrDeviceLost, err)
	}
	fence, err := d.dev.CreateFence()
	if err != nil {
		d.dev.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("%w: create fence: %w", driver.ErrDeviceLost, err)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		d.dev.DestroyFence(fence)
		d.dev.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("%w: submit: %w", driver.ErrDeviceLost, err)
	}
	return &Fence{dev: d.dev, fence: fence, cmdBuf: cmdBuf}, nil
}

func (d *Device) image(id driver.ImageID) (*imageEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.images[id]
	return e, ok
}

func (d *Device) buffer(id driver.BufferID) (hal.Buffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	return b, ok
}
