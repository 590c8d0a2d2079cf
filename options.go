// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Default option values.
const (
	// DefaultMaxInFlight bounds how many submissions may be pending on the
	// GPU before Execute blocks on the oldest.
	DefaultMaxInFlight = 2

	// DefaultRetentionFrames is how many frames an idle pooled resource
	// survives before eviction.
	DefaultRetentionFrames = 3

	// DefaultMaxGroupPasses caps how many draw passes merge into one
	// subpass group.
	DefaultMaxGroupPasses = 8
)

// MergePolicy tunes subpass merging. Merging is a policy, not a correctness
// requirement: any setting yields a hazard-safe plan.
type MergePolicy struct {
	// Disabled turns merging off; every pass becomes its own plan item.
	Disabled bool `yaml:"disabled"`

	// MaxPasses caps the passes per subpass group. Zero means
	// DefaultMaxGroupPasses.
	MaxPasses int `yaml:"maxPasses"`
}

// Options holds engine tuning parameters.
//
// The zero value is not ready to use; start from DefaultOptions or
// LoadOptions.
type Options struct {
	// MaxInFlight bounds pending submissions. Zero means DefaultMaxInFlight.
	MaxInFlight int `yaml:"maxInFlight"`

	// RetentionFrames is the pool eviction threshold in frames. Zero means
	// DefaultRetentionFrames.
	RetentionFrames int `yaml:"retentionFrames"`

	// Merge tunes subpass merging.
	Merge MergePolicy `yaml:"merge"`
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		MaxInFlight:     DefaultMaxInFlight,
		RetentionFrames: DefaultRetentionFrames,
		Merge:           MergePolicy{MaxPasses: DefaultMaxGroupPasses},
	}
}

// normalize fills zero fields with defaults.
func (o *Options) normalize() {
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = DefaultMaxInFlight
	}
	if o.RetentionFrames <= 0 {
		o.RetentionFrames = DefaultRetentionFrames
	}
	if o.Merge.MaxPasses <= 0 {
		o.Merge.MaxPasses = DefaultMaxGroupPasses
	}
}

// LoadOptions reads YAML options from r, applying defaults for any field the
// document omits.
func LoadOptions(r io.Reader) (Options, error) {
	o := DefaultOptions()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&o); err != nil {
		if err == io.EOF {
			return o, nil
		}
		return Options{}, fmt.Errorf("framegraph: decode options: %w", err)
	}
	o.normalize()
	return o, nil
}
