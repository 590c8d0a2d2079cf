// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Encoder records a command stream into a hal.CommandEncoder.
type Encoder struct {
	dev *Device
	enc hal.CommandEncoder
	rp  hal.RenderPassEncoder
}

// RenderPass returns the open HAL render pass encoder, or nil outside a
// render pass. Pass bodies running on this backend assert the driver encoder
// to *Encoder and record their draws through it.
func (e *Encoder) RenderPass() hal.RenderPassEncoder { return e.rp }

// usageForLayout maps a barrier layout to the usage-transition vocabulary
// WebGPU HAL speaks. LayoutUndefined maps to zero, which backends treat as
// "don't care, contents may be discarded".
func usageForLayout(l driver.ImageLayout) gputypes.TextureUsage {
	switch l {
	case driver.LayoutColorAttachment, driver.LayoutDepthStencilAttachment, driver.LayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	case driver.LayoutDepthStencilRead, driver.LayoutShaderRead:
		return gputypes.TextureUsageTextureBinding
	case driver.LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case driver.LayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	default:
		return 0
	}
}

func (e *Encoder) TransitionImages(barriers []driver.ImageBarrier) error {
	halBarriers := make([]hal.TextureBarrier, 0, len(barriers))
	for _, b := range barriers {
		entry, ok := e.dev.image(b.Image)
		if !ok {
			return driver.ErrInvalidHandle
		}
		halBarriers = append(halBarriers, hal.TextureBarrier{
			Texture: entry.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: usageForLayout(b.Src.Layout),
				NewUsage: usageForLayout(b.Dst.Layout),
			},
		})
	}
	e.enc.TransitionTextures(halBarriers)
	return nil
}

// TransitionBuffers is a no-op: WebGPU tracks buffer hazards implicitly.
func (e *Encoder) TransitionBuffers(barriers []driver.BufferBarrier) error { return nil }

func (e *Encoder) BeginRenderPass(desc *driver.RenderPassDesc) error {
	if e.rp != nil {
		return fmt.Errorf("wgpu: render pass already open")
	}
	halDesc := &hal.RenderPassDescriptor{Label: desc.Label}
	for _, c := range desc.Colors {
		entry, ok := e.dev.image(c.Image)
		if !ok {
			return driver.ErrInvalidHandle
		}
		halDesc.ColorAttachments = append(halDesc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       entry.view,
			LoadOp:     c.Load,
			StoreOp:    c.Store,
			ClearValue: c.Clear,
		})
	}
	if desc.Depth != nil {
		entry, ok := e.dev.image(desc.Depth.Image)
		if !ok {
			return driver.ErrInvalidHandle
		}
		halDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            entry.view,
			DepthLoadOp:     desc.Depth.Load,
			DepthStoreOp:    desc.Depth.Store,
			DepthClearValue: desc.Depth.ClearDepth,
		}
	}
	e.rp = e.enc.BeginRenderPass(halDesc)
	return nil
}

// NextSubpass is a no-op: WebGPU has no native subpasses, so merged groups
// keep drawing into the same render pass.
func (e *Encoder) NextSubpass() error {
	if e.rp == nil {
		return fmt.Errorf("wgpu: NextSubpass outside render pass")
	}
	return nil
}

func (e *Encoder) EndRenderPass() error {
	if e.rp == nil {
		return fmt.Errorf("wgpu: EndRenderPass outside render pass")
	}
	e.rp.End()
	e.rp = nil
	return nil
}

func (e *Encoder) BuildAccelStruct(desc *driver.AccelBuildDesc) error {
	return fmt.Errorf("%w: WebGPU has no acceleration structures", driver.ErrUnsupported)
}

func (e *Encoder) CopyBufferToImage(src driver.BufferID, dst driver.ImageID, bytesPerRow, rows uint32) error {
	buf, ok := e.dev.buffer(src)
	if !ok {
		return driver.ErrInvalidHandle
	}
	entry, ok := e.dev.image(dst)
	if !ok {
		return driver.ErrInvalidHandle
	}
	e.enc.CopyBufferToTexture(buf, entry.tex, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: rows},
		TextureBase:  hal.ImageCopyTexture{Texture: entry.tex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              entry.desc.Size.Width,
			Height:             entry.desc.Size.Height,
			DepthOrArrayLayers: 1,
		},
	}})
	return nil
}

func (e *Encoder) Discard() {
	if e.rp != nil {
		e.rp.End()
		e.rp = nil
	}
	e.enc.DiscardEncoding()
}
