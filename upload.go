// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/gputypes"
)

// UploadImage records a transfer pass copying src into dst and returns the
// written node version. The pixels go through a pooled staging buffer, so
// the copy lands at the pass's position in the resolved order rather than
// before the whole submission. src is converted to RGBA and scaled to the
// destination extent when the bounds differ.
//
// The destination image needs gputypes.TextureUsageCopyDst in its usage.
func (g *Graph) UploadImage(dst Node, src image.Image) (Node, error) {
	if err := g.recordable(); err != nil {
		return Node{}, err
	}
	if !dst.valid {
		return Node{}, ErrInvalidNode
	}
	if dst.g != g {
		return Node{}, ErrForeignNode
	}
	desc := dst.Handle().ImageDesc()
	if desc == nil {
		return Node{}, fmt.Errorf("framegraph: upload target %q is not an image", dst.Handle().Label())
	}

	w, h := int(desc.Size.Width), int(desc.Size.Height)
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if b := src.Bounds(); b.Dx() == w && b.Dy() == h {
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), src, b, xdraw.Src, nil)
	}
	bytesPerRow := uint32(rgba.Stride)

	staging, err := g.TransientBuffer(&driver.BufferDesc{
		Label: desc.Label + ".staging",
		Size:  uint64(len(rgba.Pix)),
		Usage: gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return Node{}, err
	}
	if err := g.dev.WriteBuffer(staging.Handle().BufferID(), 0, rgba.Pix); err != nil {
		return Node{}, fmt.Errorf("framegraph: write staging buffer: %w", err)
	}

	b := g.AddPass("upload "+desc.Label, KindTransfer)
	b.Read(staging, driver.Sync{
		Stage:  driver.StageTransfer,
		Access: driver.AccessTransferRead,
	})
	out, err := b.Write(dst, driver.Sync{
		Stage:  driver.StageTransfer,
		Access: driver.AccessTransferWrite,
		Layout: driver.LayoutTransferDst,
	})
	if err != nil {
		return Node{}, err
	}
	srcID := staging.Handle().BufferID()
	dstID := dst.Handle().ImageID()
	rows := uint32(h)
	err = b.Execute(func(rc *RecordContext) error {
		return rc.Encoder().CopyBufferToImage(srcID, dstID, bytesPerRow, rows)
	})
	if err != nil {
		return Node{}, err
	}
	return out, nil
}
