// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/wgpu/hal"
)

// waitSlice is how long one blocking HAL wait lasts before Wait rechecks its
// context.
const waitSlice = 10 * time.Millisecond

// Fence observes completion of one submission and frees the fence and
// command buffer once completion has been seen.
type Fence struct {
	dev    hal.Device
	fence  hal.Fence
	cmdBuf hal.CommandBuffer

	mu      sync.Mutex
	done    bool
	cleanup sync.Once
}

func (f *Fence) Done() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return true, nil
	}
	ok, err := f.dev.Wait(f.fence, 1, 0)
	if err != nil {
		return false, fmt.Errorf("%w: fence wait: %w", driver.ErrDeviceLost, err)
	}
	if ok {
		f.markDone()
	}
	return ok, nil
}

func (f *Fence) Wait(ctx context.Context) error {
	for {
		f.mu.Lock()
		if f.done {
			f.mu.Unlock()
			return nil
		}
		ok, err := f.dev.Wait(f.fence, 1, waitSlice)
		if err != nil {
			f.mu.Unlock()
			return fmt.Errorf("%w: fence wait: %w", driver.ErrDeviceLost, err)
		}
		if ok {
			f.markDone()
			f.mu.Unlock()
			return nil
		}
		f.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// markDone frees GPU-side bookkeeping exactly once. Callers hold f.mu.
func (f *Fence) markDone() {
	f.done = true
	f.cleanup.Do(func() {
		f.dev.DestroyFence(f.fence)
		f.dev.FreeCommandBuffer(f.cmdBuf)
	})
}
