package klip

import (
	"math"
	"math/rand"
	"testing"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

func randomRefs(n, rows, cols int, seed int64) []frame.Frame {
	rng := rand.New(rand.NewSource(seed))
	refs := make([]frame.Frame, n)
	for i := range refs {
		f := frame.New(rows, cols)
		for y := range f {
			for x := range f[y] {
				f[y][x] = rng.Float64()
			}
		}
		refs[i] = f
	}
	return refs
}

func maxAbs(f frame.Frame) float64 {
	m := 0.0
	for _, row := range f {
		for _, v := range row {
			if a := math.Abs(v); a > m {
				m = a
			}
		}
	}
	return m
}

func TestSubtractRemovesSpannedTarget(t *testing.T) {
	refs := randomRefs(3, 6, 6, 11)
	lib, err := NewLibrary(refs)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if lib.Modes() != 3 {
		t.Fatalf("Modes() = %d, want 3", lib.Modes())
	}

	// a linear combination of the references lies in the span of the KL
	// basis, so the projection reproduces it exactly
	target := frame.New(6, 6)
	for y := range target {
		for x := range target[y] {
			target[y][x] = 2*refs[0][y][x] - 0.5*refs[1][y][x] + refs[2][y][x]
		}
	}

	residual, err := Subtract(target, lib, 0)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if m := maxAbs(residual); m > 1e-9 {
		t.Errorf("residual max |v| = %g, want ~0 for a spanned target", m)
	}
}

func TestProjectOrthogonalTarget(t *testing.T) {
	// one reference whose centered pattern lives entirely in the top row
	ref := frame.New(4, 4)
	ref[0][0], ref[0][1] = 1, -1
	lib, err := NewLibrary([]frame.Frame{ref})
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	// zero-mean target orthogonal to the reference pattern
	target := frame.New(4, 4)
	target[2][0], target[2][1] = 1, -1
	target[3][2], target[3][3] = -1, 1

	estimate, err := lib.Project(target, 1)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if m := maxAbs(estimate); m > 1e-12 {
		t.Errorf("estimate max |v| = %g, want 0 for an orthogonal target", m)
	}

	residual, err := Subtract(target, lib, 1)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	for y := range target {
		for x := range target[y] {
			if math.Abs(residual[y][x]-target[y][x]) > 1e-12 {
				t.Fatalf("residual[%d][%d] = %g, want %g", y, x, residual[y][x], target[y][x])
			}
		}
	}
}

func TestProjectModeClamping(t *testing.T) {
	refs := randomRefs(4, 5, 5, 23)
	lib, err := NewLibrary(refs)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	target := randomRefs(1, 5, 5, 29)[0]

	full, err := lib.Project(target, lib.Modes())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for _, modes := range []int{0, -3, lib.Modes() + 10} {
		got, err := lib.Project(target, modes)
		if err != nil {
			t.Fatalf("Project(modes=%d): %v", modes, err)
		}
		for y := range got {
			for x := range got[y] {
				if got[y][x] != full[y][x] {
					t.Fatalf("modes=%d: projection differs from full-rank result", modes)
				}
			}
		}
	}
}

func TestProjectTruncationReducesFit(t *testing.T) {
	refs := randomRefs(5, 6, 6, 41)
	lib, err := NewLibrary(refs)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	target := frame.New(6, 6)
	for y := range target {
		for x := range target[y] {
			target[y][x] = refs[0][y][x] + 0.3*refs[3][y][x]
		}
	}

	sumSq := func(f frame.Frame) float64 {
		s := 0.0
		for _, row := range f {
			for _, v := range row {
				s += v * v
			}
		}
		return s
	}

	r1, err := Subtract(target, lib, 1)
	if err != nil {
		t.Fatalf("Subtract(1): %v", err)
	}
	rFull, err := Subtract(target, lib, lib.Modes())
	if err != nil {
		t.Fatalf("Subtract(full): %v", err)
	}
	if sumSq(rFull) > sumSq(r1)+1e-12 {
		t.Errorf("full-rank residual power %g exceeds 1-mode residual power %g",
			sumSq(rFull), sumSq(r1))
	}
}

func TestNewLibraryErrors(t *testing.T) {
	if _, err := NewLibrary(nil); err != ErrEmptyLibrary {
		t.Errorf("NewLibrary(nil) = %v, want ErrEmptyLibrary", err)
	}

	refs := randomRefs(2, 4, 4, 5)
	refs = append(refs, frame.New(4, 5))
	if _, err := NewLibrary(refs); err == nil {
		t.Error("NewLibrary accepted mismatched reference shapes")
	}

	// constant frames lose all structure after mean subtraction
	flat := frame.New(3, 3)
	for y := range flat {
		for x := range flat[y] {
			flat[y][x] = 7
		}
	}
	if _, err := NewLibrary([]frame.Frame{flat}); err == nil {
		t.Error("NewLibrary accepted a structureless library")
	}
}

func TestProjectShapeMismatch(t *testing.T) {
	lib, err := NewLibrary(randomRefs(2, 4, 4, 3))
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if _, err := lib.Project(frame.New(5, 4), 1); err == nil {
		t.Error("Project accepted a mismatched target shape")
	}
}
