// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package accel

import "errors"

// Builder errors.
var (
	// ErrIncompatibleGeometry is returned when updating a structure with
	// geometry whose topology differs from what it was built with. Updates
	// require compatible topology; a full rebuild does not.
	ErrIncompatibleGeometry = errors.New("accel: geometry incompatible with built structure")

	// ErrNotAccelStruct is returned when the target handle is not an
	// acceleration structure.
	ErrNotAccelStruct = errors.New("accel: target is not an acceleration structure")

	// ErrNotBuilt is returned when updating a structure that was never built.
	ErrNotBuilt = errors.New("accel: structure has not been built")

	// ErrBadGeometry is returned when the geometry description does not match
	// the structure kind (triangles for bottom-level, instances for
	// top-level) or is incomplete.
	ErrBadGeometry = errors.New("accel: invalid geometry description")
)
