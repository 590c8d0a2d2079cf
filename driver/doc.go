// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver defines the boundary between the render-graph core and a
// low-level graphics backend.
//
// The core never touches native GPU handles directly: it allocates resources,
// records synchronization transitions, and submits work exclusively through
// the interfaces in this package. Backends map these calls onto a concrete
// API; see the wgpu subpackage for the gogpu/wgpu HAL implementation and the
// drivertest subpackage for the in-memory fake used in tests.
//
// The package also carries the synchronization vocabulary shared by the
// scheduler and the backends: pipeline stages, access masks, image layouts,
// queue kinds, and the barrier structs built from them. Descriptors reuse
// gputypes for formats, usages, and extents so resources created here are
// directly expressible to a WebGPU-class backend.
package driver
