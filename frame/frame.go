// Package frame provides the 2-D detector-plane grid type shared by the
// coronagraphy analysis packages, together with convolution, resampling,
// FITS and PNG input/output.
//
// A Frame holds detector samples in counts/second, row major. Saturated or
// otherwise invalid pixels arrive from the calculation engine as NaN and must
// be replaced with SanitizeNaNs before any numeric analysis.
package frame

import (
	"errors"
	"fmt"
	"math"
)

// Frame is a row-major grid of detector samples (counts/second).
type Frame [][]float64

var ErrRagged = errors.New("frame: ragged grid")

// New returns a zero-filled rows x cols frame.
func New(rows, cols int) Frame {
	f := make(Frame, rows)
	for i := range f {
		f[i] = make([]float64, cols)
	}
	return f
}

// Dims returns the frame dimensions after checking that every row has the
// same width.
func (f Frame) Dims() (rows, cols int, err error) {
	rows = len(f)
	if rows == 0 {
		return 0, 0, nil
	}
	cols = len(f[0])
	for i := 1; i < rows; i++ {
		if len(f[i]) != cols {
			return 0, 0, ErrRagged
		}
	}
	return rows, cols, nil
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	for i := range f {
		out[i] = make([]float64, len(f[i]))
		copy(out[i], f[i])
	}
	return out
}

// Flatten returns the samples as a single row-major vector.
func (f Frame) Flatten() []float64 {
	rows := len(f)
	if rows == 0 {
		return nil
	}
	cols := len(f[0])
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, f[i]...)
	}
	return out
}

// FromVector reshapes a row-major vector into a rows x cols frame.
func FromVector(v []float64, rows, cols int) (Frame, error) {
	if len(v) != rows*cols {
		return nil, fmt.Errorf("frame: size mismatch: have %d, want %d", len(v), rows*cols)
	}
	f := make(Frame, rows)
	k := 0
	for i := 0; i < rows; i++ {
		f[i] = make([]float64, cols)
		copy(f[i], v[k:k+cols])
		k += cols
	}
	return f, nil
}

// MinMax returns the smallest and largest finite samples. The second return
// is false when the frame holds no finite sample at all.
func (f Frame) MinMax() (lo, hi float64, ok bool) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, row := range f {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			ok = true
		}
	}
	return lo, hi, ok
}

// Scale multiplies every sample by s in place.
func (f Frame) Scale(s float64) {
	for _, row := range f {
		for j := range row {
			row[j] *= s
		}
	}
}

// Sub returns f - other. The frames must have identical shapes.
func (f Frame) Sub(other Frame) (Frame, error) {
	r1, c1, err := f.Dims()
	if err != nil {
		return nil, err
	}
	r2, c2, err := other.Dims()
	if err != nil {
		return nil, err
	}
	if r1 != r2 || c1 != c2 {
		return nil, fmt.Errorf("frame: shape mismatch: %dx%d vs %dx%d", r1, c1, r2, c2)
	}
	out := New(r1, c1)
	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			out[i][j] = f[i][j] - other[i][j]
		}
	}
	return out, nil
}

// NaNPolicy selects the replacement value used by SanitizeNaNs.
type NaNPolicy int

const (
	// NaNToMax replaces invalid samples with the largest finite sample.
	// Saturated pixels sit at the top of the dynamic range, so this is the
	// usual choice for engine output.
	NaNToMax NaNPolicy = iota
	// NaNToMean replaces invalid samples with the mean of the finite samples.
	NaNToMean
	// NaNToZero replaces invalid samples with zero.
	NaNToZero
)

// SanitizeNaNs replaces NaN and infinite samples in place according to the
// policy and reports how many samples were replaced. A frame with no finite
// sample at all is zero-filled regardless of policy.
func SanitizeNaNs(f Frame, policy NaNPolicy) int {
	fill := 0.0
	switch policy {
	case NaNToMax:
		if _, hi, ok := f.MinMax(); ok {
			fill = hi
		}
	case NaNToMean:
		sum, n := 0.0, 0
		for _, row := range f {
			for _, v := range row {
				if !math.IsNaN(v) && !math.IsInf(v, 0) {
					sum += v
					n++
				}
			}
		}
		if n > 0 {
			fill = sum / float64(n)
		}
	}

	replaced := 0
	for _, row := range f {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = fill
				replaced++
			}
		}
	}
	return replaced
}

// Interpolate performs bilinear interpolation at fractional coordinates
// (x along columns, y along rows), clamped at the frame edges.
func Interpolate(f Frame, x, y float64) float64 {
	rows := len(f)
	if rows == 0 {
		return 0
	}
	cols := len(f[0])
	if cols == 0 {
		return 0
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= float64(cols-1) {
		x = float64(cols-1) - 1e-9
	}
	if y >= float64(rows-1) {
		y = float64(rows-1) - 1e-9
	}
	if cols == 1 {
		x = 0
	}
	if rows == 1 {
		y = 0
	}

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > cols-1 {
		x1 = cols - 1
	}
	if y1 > rows-1 {
		y1 = rows - 1
	}

	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v00 := f[y0][x0]
	v01 := f[y0][x1]
	v10 := f[y1][x0]
	v11 := f[y1][x1]

	v0 := v00*(1-xFrac) + v01*xFrac
	v1 := v10*(1-xFrac) + v11*xFrac

	return v0*(1-yFrac) + v1*yFrac
}
