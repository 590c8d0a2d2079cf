// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph is a render-graph execution engine for GPU frames.
//
// A caller describes one frame as a set of passes (draw, compute, ray trace,
// transfer) that read and write GPU resources through versioned graph nodes.
// Resolving the graph computes a valid execution order, merges compatible
// draw passes into subpass groups, inserts the minimal synchronization
// barriers between conflicting accesses, and schedules pooled transient
// resources for release after their last consumer. The command chain then
// records and submits the resolved plan and reports completion through a
// Submission.
//
// Typical frame:
//
//	g, _ := framegraph.New(framegraph.Config{Device: dev, Pool: p})
//	color, _ := g.Transient(&driver.ImageDesc{...})
//	scene := g.AddPass("scene", framegraph.KindDraw)
//	color, _ = scene.Color(0, color, gputypes.LoadOpClear, gputypes.StoreOpStore, black)
//	_ = scene.Execute(drawScene)
//	plan, err := g.Resolve()
//	// ...
//	sub, err := chain.Execute(ctx, plan)
//	// ...
//	err = sub.Wait(ctx)
//
// Graph construction and resolution are single-threaded per graph. A resource
// handle may be bound to at most one unresolved graph at a time; independent
// goroutines may build independent graphs as long as they do not share
// unresolved handles.
package framegraph
