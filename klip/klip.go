// Package klip builds a synthetic PSF estimate for a coronagraphic frame by
// projecting it onto a Karhunen-Loeve basis derived from a library of
// registered reference frames, then subtracts that estimate from the frame.
package klip

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

// Singular values below this fraction of the largest are treated as
// numerical noise and excluded from the basis.
const rankTol = 1e-12

var ErrEmptyLibrary = errors.New("klip: reference library is empty")

// Library holds the KL decomposition of a set of reference frames. All
// frames must share one shape. A Library is immutable after construction and
// safe for concurrent Project calls.
type Library struct {
	rows, cols int
	rank       int
	basis      *mat.Dense // rank x pixels, orthonormal rows
}

// NewLibrary mean-centers each reference frame and computes the KL modes via
// a thin SVD of the stacked reference matrix.
func NewLibrary(refs []frame.Frame) (*Library, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyLibrary
	}

	rows, cols, err := refs[0].Dims()
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, errors.New("klip: empty reference frame")
	}
	pixels := rows * cols

	data := mat.NewDense(len(refs), pixels, nil)
	for i, ref := range refs {
		r, c, err := ref.Dims()
		if err != nil {
			return nil, err
		}
		if r != rows || c != cols {
			return nil, fmt.Errorf("klip: reference %d is %dx%d, want %dx%d", i, r, c, rows, cols)
		}
		row := ref.Flatten()
		subtractMean(row)
		data.SetRow(i, row)
	}

	var svd mat.SVD
	if ok := svd.Factorize(data, mat.SVDThin); !ok {
		return nil, errors.New("klip: SVD of reference matrix failed")
	}

	values := svd.Values(nil)
	rank := 0
	for _, s := range values {
		if s > rankTol*values[0] {
			rank++
		}
	}
	if rank == 0 {
		return nil, errors.New("klip: reference frames carry no structure after mean subtraction")
	}

	var v mat.Dense
	svd.VTo(&v) // pixels x min(k, pixels); columns are the KL modes

	basis := mat.NewDense(rank, pixels, nil)
	for m := 0; m < rank; m++ {
		for p := 0; p < pixels; p++ {
			basis.Set(m, p, v.At(p, m))
		}
	}

	return &Library{rows: rows, cols: cols, rank: rank, basis: basis}, nil
}

// Modes reports the number of usable KL modes.
func (l *Library) Modes() int { return l.rank }

// Project returns the synthetic PSF estimate of target built from the first
// `modes` KL modes. modes is clamped to the library rank; values < 1 select
// every mode. The estimate carries the target's own mean level so that
// target.Sub(estimate) is the KLIP residual.
func (l *Library) Project(target frame.Frame, modes int) (frame.Frame, error) {
	r, c, err := target.Dims()
	if err != nil {
		return nil, err
	}
	if r != l.rows || c != l.cols {
		return nil, fmt.Errorf("klip: target is %dx%d, want %dx%d", r, c, l.rows, l.cols)
	}
	if modes < 1 || modes > l.rank {
		modes = l.rank
	}

	t := target.Flatten()
	mean := subtractMean(t)

	pixels := l.rows * l.cols
	estimate := make([]float64, pixels)
	for m := 0; m < modes; m++ {
		modeRow := l.basis.RawRowView(m)
		coeff := mat.Dot(mat.NewVecDense(pixels, t), mat.NewVecDense(pixels, modeRow))
		for p := 0; p < pixels; p++ {
			estimate[p] += coeff * modeRow[p]
		}
	}
	for p := range estimate {
		estimate[p] += mean
	}

	return frame.FromVector(estimate, l.rows, l.cols)
}

// Subtract removes the KLIP PSF estimate from target.
func Subtract(target frame.Frame, lib *Library, modes int) (frame.Frame, error) {
	estimate, err := lib.Project(target, modes)
	if err != nil {
		return nil, err
	}
	return target.Sub(estimate)
}

// subtractMean removes and returns the mean of v.
func subtractMean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	for i := range v {
		v[i] -= mean
	}
	return mean
}
