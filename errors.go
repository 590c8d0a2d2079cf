// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "errors"

// Graph and plan errors.
var (
	// ErrForeignNode is returned when a pass references a node created by a
	// different graph.
	ErrForeignNode = errors.New("framegraph: node belongs to another graph")

	// ErrInvalidNode is returned when a pass references the zero Node.
	ErrInvalidNode = errors.New("framegraph: node is not valid")

	// ErrStaleWrite is returned when writing a node version that has already
	// been superseded by a later write. Node versions form a strict chain; a
	// version has at most one successor writer.
	ErrStaleWrite = errors.New("framegraph: write to a superseded node version")

	// ErrCyclicDependency is returned by Resolve when the declared accesses
	// form a dependency cycle. No partial plan is produced.
	ErrCyclicDependency = errors.New("framegraph: pass dependencies form a cycle")

	// ErrResolved is returned when recording into or re-resolving a graph
	// whose pass list has already been consumed.
	ErrResolved = errors.New("framegraph: graph already resolved")

	// ErrDiscarded is returned when using a discarded graph or plan.
	ErrDiscarded = errors.New("framegraph: graph was discarded")

	// ErrExecuted is returned when executing or discarding a plan twice.
	ErrExecuted = errors.New("framegraph: plan already executed")

	// ErrNoPool is returned when requesting a transient resource from a graph
	// built without a pool.
	ErrNoPool = errors.New("framegraph: graph has no resource pool")

	// ErrNilDevice is returned by New when the config names no device.
	ErrNilDevice = errors.New("framegraph: device is nil")

	// ErrNotDrawPass is returned when binding render attachments on a
	// non-draw pass.
	ErrNotDrawPass = errors.New("framegraph: attachments require a draw pass")
)
