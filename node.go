// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/resource"
)

// Node is a graph-local binding of a resource handle at one version.
//
// Every write access produces a new version; readers bind to the version
// current when they were recorded. Nodes are values: pass an updated Node
// forward after each write to chain passes linearly. The zero Node is
// invalid.
type Node struct {
	g       *Graph
	binding int
	version int
	valid   bool
}

// Valid reports whether the node was produced by a graph.
func (n Node) Valid() bool { return n.valid }

// Handle returns the bound resource handle, or nil for the zero Node.
func (n Node) Handle() *resource.Handle {
	if !n.valid {
		return nil
	}
	return n.g.bindings[n.binding].handle
}

// Version returns the node's resource version within its graph.
func (n Node) Version() int { return n.version }

// String returns a compact description for logs.
func (n Node) String() string {
	if !n.valid {
		return "Node(invalid)"
	}
	return fmt.Sprintf("Node(%s@v%d)", n.g.bindings[n.binding].handle.Label(), n.version)
}

// binding is the per-handle record of a graph: the version chain and the
// passes that touch each version.
type binding struct {
	index     int
	handle    *resource.Handle
	transient bool

	// version is the current (latest) version number.
	version int

	// producers[v] is the recording index of the pass that produced version
	// v, or -1 for version 0.
	producers []int

	// readers[v] lists recording indices of passes reading version v.
	readers [][]int
}

// touched reports whether any pass accessed the binding.
func (b *binding) touched() bool {
	if len(b.producers) > 1 {
		return true
	}
	for _, rs := range b.readers {
		if len(rs) > 0 {
			return true
		}
	}
	return false
}
