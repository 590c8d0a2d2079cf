// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import "errors"

// Handle errors.
var (
	// ErrAlreadyBound is returned when binding a handle that is checked out
	// by another unresolved graph. A resource may be active in at most one
	// unresolved graph at a time.
	ErrAlreadyBound = errors.New("resource: handle already bound to another graph")

	// ErrDestroyed is returned when operating on a handle whose last
	// reference has been released.
	ErrDestroyed = errors.New("resource: handle has been destroyed")

	// ErrNilDevice is returned when creating a handle without a device.
	ErrNilDevice = errors.New("resource: device is nil")

	// ErrNilDesc is returned when creating a handle without a descriptor.
	ErrNilDesc = errors.New("resource: descriptor is nil")
)
