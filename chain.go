// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/driver"
	"github.com/gogpu/framegraph/pool"
)

// CommandChain executes resolved plans. It records each plan into one
// command stream, submits it, and bounds how many submissions may be in
// flight on the GPU before execution blocks on the oldest.
//
// A CommandChain is safe for concurrent use.
type CommandChain struct {
	mu       sync.Mutex
	dev      driver.Device
	pool     *pool.Pool
	maxAhead int
	inflight []*Submission
}

// NewCommandChain creates an executor over dev. pool may be nil when no
// graph executed through the chain uses transients.
func NewCommandChain(dev driver.Device, p *pool.Pool, opts Options) *CommandChain {
	opts.normalize()
	return &CommandChain{
		dev:      dev,
		pool:     p,
		maxAhead: opts.MaxInFlight,
	}
}

// Execute records plan into a command stream, submits it, and returns a
// Submission observing GPU completion. Recording is all-or-nothing: any
// error discards the encoder, abandons the plan's resources with nothing
// submitted, and is returned. Submission failure propagates
// driver.ErrDeviceLost fatally.
//
// When the in-flight limit is reached, Execute first waits for the oldest
// pending submission; ctx bounds that wait.
func (c *CommandChain) Execute(ctx context.Context, plan *ExecutionPlan) (*Submission, error) {
	if plan == nil {
		return nil, ErrDiscarded
	}
	if plan.discarded {
		return nil, ErrDiscarded
	}
	if plan.executed {
		return nil, ErrExecuted
	}
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	enc, err := c.dev.NewEncoder("framegraph")
	if err != nil {
		plan.discarded = true
		plan.abandon()
		return nil, fmt.Errorf("framegraph: begin encoding: %w", err)
	}
	if err := c.record(enc, plan); err != nil {
		enc.Discard()
		plan.discarded = true
		plan.abandon()
		return nil, err
	}

	fence, err := c.dev.Submit(enc)
	if err != nil {
		plan.discarded = true
		plan.abandon()
		return nil, fmt.Errorf("framegraph: submit: %w", err)
	}
	plan.executed = true

	for _, h := range plan.handles {
		h.Retain()
	}
	sub := &Submission{
		fence:      fence,
		graph:      plan.graph,
		pool:       c.pool,
		finals:     plan.finals,
		handles:    plan.handles,
		transients: plan.transients,
	}

	c.mu.Lock()
	c.inflight = append(c.inflight, sub)
	n := len(c.inflight)
	c.mu.Unlock()

	logger().Debug("plan submitted", "items", len(plan.items), "in_flight", n)
	return sub, nil
}

// record walks the plan, emitting barriers then pass bodies. Merged groups
// run inside one native render pass with NextSubpass between members.
func (c *CommandChain) record(enc driver.Encoder, plan *ExecutionPlan) error {
	rc := &RecordContext{dev: c.dev, enc: enc, g: plan.graph}
	for _, item := range plan.items {
		if len(item.imageBarriers) > 0 {
			if err := enc.TransitionImages(item.imageBarriers); err != nil {
				return fmt.Errorf("framegraph: image barriers: %w", err)
			}
		}
		if len(item.bufferBarriers) > 0 {
			if err := enc.TransitionBuffers(item.bufferBarriers); err != nil {
				return fmt.Errorf("framegraph: buffer barriers: %w", err)
			}
		}
		if item.target != nil {
			if err := c.recordDraw(enc, rc, item); err != nil {
				return err
			}
			continue
		}
		for _, p := range item.passes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(rc); err != nil {
				return fmt.Errorf("framegraph: pass %q: %w", p.name, err)
			}
		}
	}
	return nil
}

func (c *CommandChain) recordDraw(enc driver.Encoder, rc *RecordContext, item planItem) error {
	if err := enc.BeginRenderPass(item.target); err != nil {
		return fmt.Errorf("framegraph: begin render pass %q: %w", item.target.Label, err)
	}
	for i, p := range item.passes {
		if i > 0 {
			if err := enc.NextSubpass(); err != nil {
				return fmt.Errorf("framegraph: next subpass: %w", err)
			}
		}
		if p.fn == nil {
			continue
		}
		if err := p.fn(rc); err != nil {
			return fmt.Errorf("framegraph: pass %q: %w", p.name, err)
		}
	}
	if err := enc.EndRenderPass(); err != nil {
		return fmt.Errorf("framegraph: end render pass %q: %w", item.target.Label, err)
	}
	return nil
}

// throttle blocks until fewer than maxAhead submissions are pending.
func (c *CommandChain) throttle(ctx context.Context) error {
	for {
		c.mu.Lock()
		c.prune()
		if len(c.inflight) < c.maxAhead {
			c.mu.Unlock()
			return nil
		}
		oldest := c.inflight[0]
		c.mu.Unlock()

		if err := oldest.Wait(ctx); err != nil {
			return err
		}
	}
}

// prune drops completed submissions from the in-flight list. Callers hold
// c.mu.
func (c *CommandChain) prune() {
	kept := c.inflight[:0]
	for _, s := range c.inflight {
		if !s.completed() {
			kept = append(kept, s)
		}
	}
	c.inflight = kept
}

// InFlight returns how many submissions are pending.
func (c *CommandChain) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	return len(c.inflight)
}
