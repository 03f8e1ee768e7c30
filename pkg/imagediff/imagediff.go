// Package imagediff compares screenshots pixel for pixel and renders
// difference visualizations. Two interchangeable backends produce the same
// counts: ImageMagick's compare with the AE metric, and a pure-Go scan.
package imagediff

import (
	"errors"
	"fmt"
	"os"
)

// Backend names accepted in Options.Backend.
const (
	BackendAuto   = "auto"
	BackendMagick = "magick"
	BackendNative = "native"
)

// ErrNoBackend means the requested comparison backend cannot run.
var ErrNoBackend = errors.New("no image comparison backend available")

// Result holds the outcome of one comparison. PixelDiff counts pixels where
// any channel differs by any nonzero amount; magnitude is irrelevant.
// DiffImage is set only when a visualization was written, never for a clean
// match.
type Result struct {
	PixelDiff int    `json:"pixelDiff"`
	IsMatch   bool   `json:"isMatch"`
	DiffImage string `json:"diffImage,omitempty"`
}

// Options control one comparison.
type Options struct {
	// Threshold is the maximum differing-pixel count that still matches.
	Threshold int
	// DiffOutput, when set, is where the visualization for a mismatch goes.
	DiffOutput string
	// SideBySide renders a three-panel composite (baseline | current |
	// amplified diff) instead of the bare diff image.
	SideBySide bool
	// Backend picks the implementation: auto, magick or native.
	Backend string
}

// DimensionMismatchError reports images whose sizes cannot be compared.
type DimensionMismatchError struct {
	ActualWidth    int
	ActualHeight   int
	ExpectedWidth  int
	ExpectedHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image dimensions don't match: %dx%d vs %dx%d",
		e.ActualWidth, e.ActualHeight, e.ExpectedWidth, e.ExpectedHeight)
}

// Backend is one comparison implementation.
type Backend interface {
	Name() string
	Compare(actual, expected string, opts Options) (*Result, error)
}

// Compare checks both files exist, picks a backend per opts.Backend and runs
// the comparison.
func Compare(actual, expected string, opts Options) (*Result, error) {
	if _, err := os.Stat(actual); err != nil {
		return nil, fmt.Errorf("actual image not found: %s", actual)
	}
	if _, err := os.Stat(expected); err != nil {
		return nil, fmt.Errorf("reference image not found: %s", expected)
	}

	backend, err := selectBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	return backend.Compare(actual, expected, opts)
}

// selectBackend resolves a backend name. Auto prefers ImageMagick to stay
// byte-compatible with shell-based test setups, falling back to the native
// scan which is always available.
func selectBackend(name string) (Backend, error) {
	switch name {
	case "", BackendAuto:
		if m := NewMagick(); m.Available() {
			return m, nil
		}
		return &Native{}, nil
	case BackendMagick:
		m := NewMagick()
		if !m.Available() {
			return nil, fmt.Errorf("%w: imagemagick compare not found", ErrNoBackend)
		}
		return m, nil
	case BackendNative:
		return &Native{}, nil
	default:
		return nil, fmt.Errorf("unknown comparison backend: %s", name)
	}
}
