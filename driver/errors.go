// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "errors"

// Errors reported by backends.
var (
	// ErrAllocationFailed is returned when the device cannot satisfy a
	// resource descriptor (size, format, or usage unsupported).
	ErrAllocationFailed = errors.New("driver: resource allocation failed")

	// ErrDeviceLost is returned when the GPU device is lost. Device loss is
	// fatal: all outstanding resources and submissions are invalid and the
	// error must be propagated, never retried.
	ErrDeviceLost = errors.New("driver: GPU device lost")

	// ErrUnsupported is returned for operations the backend cannot perform,
	// such as acceleration-structure builds on a WebGPU device.
	ErrUnsupported = errors.New("driver: operation not supported by this backend")

	// ErrInvalidHandle is returned when an operation references a resource ID
	// the device does not know about.
	ErrInvalidHandle = errors.New("driver: invalid resource handle")
)
