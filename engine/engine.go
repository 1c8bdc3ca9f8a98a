// Package engine defines the boundary to an external coronagraphic
// calculation engine (an exposure-time calculator). The engine itself is not
// implemented here: callers provide a Calculator, and this package supplies
// the configuration and result types, a per-process PSF cache for Calculator
// implementations, and a concurrent parameter-sweep driver.
package engine

import (
	"context"
	"time"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
	"github.com/juliengirard/pandeia-coronagraphy/scene"
)

// Options carries the per-call engine settings. Options values are passed by
// value and never mutated by this package; build a modified copy instead of
// twiddling a shared instance.
type Options struct {
	// WaveSampling is the number of wavelength samples used for the
	// bandpass integration.
	WaveSampling int
	// OnTheFlyPSFs requests PSF synthesis per calculation instead of the
	// engine's precomputed PSF library.
	OnTheFlyPSFs bool
	// IncludeSaturation requests a saturation map alongside each detector
	// image.
	IncludeSaturation bool
	// BackgroundLevel selects the engine's background model
	// (e.g. "low", "medium", "high").
	BackgroundLevel string
}

// DefaultOptions mirrors the engine defaults.
func DefaultOptions() Options {
	return Options{
		WaveSampling:      21,
		OnTheFlyPSFs:      false,
		IncludeSaturation: true,
		BackgroundLevel:   "medium",
	}
}

// Calculation is one engine invocation: a scene plus an identifier that
// survives into the Result so sweep output can be traced back.
type Calculation struct {
	ID    string
	Scene scene.Scene
}

// SourceResult holds the engine products for a single source: the
// detector-plane image in counts/second and, when requested, a saturation
// map (nonzero marks saturated pixels; saturated detector samples arrive
// as NaN and must be sanitized before analysis).
type SourceResult struct {
	Detector   frame.Frame
	Saturation frame.Frame
}

// Result is the engine output for one Calculation.
type Result struct {
	ID        string
	Target    SourceResult
	PerSource map[string]SourceResult
	Elapsed   time.Duration
}

// Calculator is the calculation-engine boundary. Implementations must treat
// the Calculation and Options values as read-only and return freshly
// allocated frames so concurrent callers never share buffers.
type Calculator interface {
	Calculate(ctx context.Context, calc Calculation, opts Options) (*Result, error)
}
