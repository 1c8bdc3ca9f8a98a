// Package contrast estimates radial contrast curves from coronagraphic
// detector frames.
//
// The estimator convolves the occulted (or PSF-subtracted) frame and an
// unocculted reference frame with a fixed photometric aperture, normalizes by
// the peak of the convolved unocculted frame, and reports the standard
// deviation of the convolved occulted frame inside equal-width radial annuli.
// The binning is deliberately simple: pixels at or beyond the outermost edge
// fold into the final annulus, and the curve's absolute values are
// illustrative rather than calibrated.
package contrast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

var (
	// ErrInvalidShape reports frames too small for the aperture, ragged
	// frames, or mismatched occulted/unocculted shapes.
	ErrInvalidShape = errors.New("contrast: invalid input shape")

	// ErrDegenerateNormalization reports an unocculted frame whose convolved
	// peak is not a positive finite value.
	ErrDegenerateNormalization = errors.New("contrast: unocculted peak is not a positive finite value")
)

// Aperture returns the fixed photometric aperture: five unit weights in a
// plus arrangement, the center pixel and the four arm tips two pixels out.
// A fresh copy is returned on every call so callers cannot alias the kernel.
func Aperture() frame.Frame {
	return frame.Frame{
		{0, 0, 1, 0, 0},
		{0, 0, 0, 0, 0},
		{1, 0, 1, 0, 1},
		{0, 0, 0, 0, 0},
		{0, 0, 1, 0, 0},
	}
}

// Curve is a radial contrast curve. RadiusPx holds the nAnnuli bin edges in
// pixels from the convolved-grid center; Values holds one dimensionless
// contrast per occupied annulus, ordered by increasing radius. Values may be
// shorter than RadiusPx when interior annuli contain no pixels.
type Curve struct {
	RadiusPx []float64
	Values   []float64
}

// RadiusArcsec converts the bin edges to angular units with the given
// detector pixel scale (arcsec/pixel).
func (c Curve) RadiusArcsec(pixelScale float64) []float64 {
	out := make([]float64, len(c.RadiusPx))
	for i, r := range c.RadiusPx {
		out[i] = r * pixelScale
	}
	return out
}

// Estimate computes the radial contrast curve of occulted against unocculted.
//
// Both frames must share the same shape, be rectangular, be at least as large
// as the aperture in each dimension, and be free of NaNs (run
// frame.SanitizeNaNs first). nAnnuli must be at least 2.
//
// The function is pure: identical inputs produce identical outputs, and
// concurrent calls on distinct buffers are safe.
func Estimate(occulted, unocculted frame.Frame, nAnnuli int) (Curve, error) {
	if nAnnuli < 2 {
		return Curve{}, fmt.Errorf("contrast: n_annuli must be at least 2, got %d", nAnnuli)
	}

	or, oc, err := occulted.Dims()
	if err != nil {
		return Curve{}, fmt.Errorf("%w: occulted: %v", ErrInvalidShape, err)
	}
	ur, uc, err := unocculted.Dims()
	if err != nil {
		return Curve{}, fmt.Errorf("%w: unocculted: %v", ErrInvalidShape, err)
	}
	if or != ur || oc != uc {
		return Curve{}, fmt.Errorf("%w: occulted %dx%d vs unocculted %dx%d",
			ErrInvalidShape, or, oc, ur, uc)
	}

	aperture := Aperture()

	u, err := frame.Convolve(unocculted, aperture, frame.ConvValid)
	if err != nil {
		return Curve{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	o, err := frame.Convolve(occulted, aperture, frame.ConvValid)
	if err != nil {
		return Curve{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	_, norm, ok := u.MinMax()
	if !ok || math.IsNaN(norm) || math.IsInf(norm, 0) || norm <= 0 {
		return Curve{}, ErrDegenerateNormalization
	}

	rows := len(o)
	cols := len(o[0])

	// Radial distance of every pixel from the geometric center of the
	// convolved grid.
	cy := float64(rows) / 2.0
	cx := float64(cols) / 2.0
	rMax := 0.0
	radii := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r := math.Hypot(float64(y)-cy, float64(x)-cx)
			radii[y*cols+x] = r
			if r > rMax {
				rMax = r
			}
		}
	}

	// nAnnuli equal-width edges across [0, rMax]. A pixel with
	// edge[i-1] <= r < edge[i] belongs to annulus i; r at or beyond the last
	// edge folds into the final annulus.
	edges := floats.Span(make([]float64, nAnnuli), 0, rMax)

	annuli := make([][]float64, nAnnuli+1)
	flatO := o.Flatten()
	for i, r := range radii {
		idx := sort.Search(len(edges), func(k int) bool { return edges[k] > r })
		if idx > nAnnuli {
			idx = nAnnuli
		}
		annuli[idx] = append(annuli[idx], flatO[i])
	}

	values := make([]float64, 0, nAnnuli)
	for idx := 1; idx <= nAnnuli; idx++ {
		if len(annuli[idx]) == 0 {
			continue
		}
		// Population standard deviation: a single-pixel annulus contributes
		// an exact zero instead of an undefined sample deviation.
		values = append(values, stat.PopStdDev(annuli[idx], nil)/norm)
	}

	return Curve{RadiusPx: edges, Values: values}, nil
}
