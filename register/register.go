// Package register spatially aligns one detector frame to another. Reference
// frames must be registered onto the occulted science frame before they can
// serve in a PSF-subtraction library.
package register

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

// Result reports an alignment: the resampled frame, the shift applied to it
// (rows and columns, fractional pixels), and the flux scale factor
// (1 when rescaling was not requested).
type Result struct {
	Aligned   frame.Frame
	ShiftRows float64
	ShiftCols float64
	FluxScale float64
}

// Align registers moving onto target. The shift is estimated from the peak
// of the circular cross-correlation, refined to sub-pixel precision by a
// parabolic fit around the peak, and applied with bilinear resampling. When
// rescaleFlux is set the aligned frame is scaled by the least-squares factor
// that best matches it to target.
func Align(moving, target frame.Frame, rescaleFlux bool) (Result, error) {
	mr, mc, err := moving.Dims()
	if err != nil {
		return Result{}, err
	}
	tr, tc, err := target.Dims()
	if err != nil {
		return Result{}, err
	}
	if mr == 0 || mc == 0 {
		return Result{}, errors.New("register: empty frame")
	}
	if mr != tr || mc != tc {
		return Result{}, fmt.Errorf("register: shape mismatch: %dx%d vs %dx%d", mr, mc, tr, tc)
	}

	xc, err := frame.CrossCorrelate(target, moving)
	if err != nil {
		return Result{}, err
	}

	// Peak of the correlation surface gives the cyclic shift of moving that
	// best overlays target.
	py, px := argmax(xc)
	dy := refinePeak(xc, py, px, true)
	dx := refinePeak(xc, py, px, false)

	// Fold wrap-around shifts back to the signed range.
	if dy > float64(mr)/2 {
		dy -= float64(mr)
	}
	if dx > float64(mc)/2 {
		dx -= float64(mc)
	}

	aligned := shift(moving, dy, dx)

	scale := 1.0
	if rescaleFlux {
		a := aligned.Flatten()
		t := target.Flatten()
		den := floats.Dot(a, a)
		if den > 0 {
			scale = floats.Dot(a, t) / den
			aligned.Scale(scale)
		}
	}

	return Result{Aligned: aligned, ShiftRows: dy, ShiftCols: dx, FluxScale: scale}, nil
}

func argmax(f frame.Frame) (row, col int) {
	best := f[0][0]
	for y := range f {
		for x, v := range f[y] {
			if v > best {
				best = v
				row, col = y, x
			}
		}
	}
	return row, col
}

// refinePeak fits a parabola through the correlation peak and its two cyclic
// neighbors along one axis and returns the fractional peak position.
func refinePeak(f frame.Frame, py, px int, alongRows bool) float64 {
	rows := len(f)
	cols := len(f[0])

	var c0, c1, c2 float64
	var pos, n int
	if alongRows {
		pos, n = py, rows
		c0 = f[(py-1+rows)%rows][px]
		c1 = f[py][px]
		c2 = f[(py+1)%rows][px]
	} else {
		pos, n = px, cols
		c0 = f[py][(px-1+cols)%cols]
		c1 = f[py][px]
		c2 = f[py][(px+1)%cols]
	}

	denom := c0 - 2*c1 + c2
	offset := 0.0
	if denom != 0 {
		offset = 0.5 * (c0 - c2) / denom
		// a degenerate fit can run away; the true sub-pixel offset is
		// bounded by half a pixel
		if offset > 0.5 {
			offset = 0.5
		} else if offset < -0.5 {
			offset = -0.5
		}
	}

	p := float64(pos) + offset
	if p < 0 {
		p += float64(n)
	}
	return p
}

// shift resamples f by (dy, dx) with bilinear interpolation, clamping at the
// frame edges.
func shift(f frame.Frame, dy, dx float64) frame.Frame {
	rows := len(f)
	cols := len(f[0])
	out := frame.New(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out[y][x] = frame.Interpolate(f, float64(x)-dx, float64(y)-dy)
		}
	}
	return out
}
