// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/resource"
)

// Submission observes GPU completion of one executed plan.
//
// On the first observed completion — through Done or Wait — the submission
// commits every touched handle's final synchronization state, checks all
// handles back in, and returns transients to the pool guarded by the
// submission's fence. Completion is only ever observed, never assumed: a
// caller that neither polls nor waits keeps the plan's resources committed.
//
// A Submission is safe for concurrent use.
type Submission struct {
	fence driver.Fence
	graph *Graph
	pool  *pool.Pool

	finals     map[*resource.Handle]driver.Sync
	handles    []*resource.Handle
	transients []*resource.Handle

	done     atomic.Bool
	finalize sync.Once
}

// Done polls GPU completion without blocking, finalizing resource states on
// the first true result.
func (s *Submission) Done() (bool, error) {
	if s.done.Load() {
		return true, nil
	}
	ok, err := s.fence.Done()
	if err != nil {
		return false, fmt.Errorf("framegraph: poll submission: %w", err)
	}
	if ok {
		s.complete()
	}
	return ok, nil
}

// Wait blocks until the GPU completes the submission or ctx is done,
// finalizing resource states on success.
func (s *Submission) Wait(ctx context.Context) error {
	if s.done.Load() {
		return nil
	}
	if err := s.fence.Wait(ctx); err != nil {
		return fmt.Errorf("framegraph: wait submission: %w", err)
	}
	s.complete()
	return nil
}

// completed reports whether completion has been observed.
func (s *Submission) completed() bool { return s.done.Load() }

// complete runs the one-time completion protocol.
func (s *Submission) complete() {
	s.finalize.Do(func() {
		for h, sync := range s.finals {
			h.CommitState(sync)
		}
		for _, h := range s.handles {
			h.Checkin(s.graph)
		}
		if s.pool != nil {
			for _, h := range s.transients {
				if err := s.pool.Release(h, s.fence); err != nil {
					logger().Warn("transient release failed",
						"label", h.Label(), "err", err)
				}
			}
		}
		for _, h := range s.handles {
			h.Release()
		}
		s.done.Store(true)
		logger().Debug("submission completed",
			"handles", len(s.handles), "transients", len(s.transients))
	})
}
