package frame

import (
	"errors"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ConvMode selects the output extent of a convolution.
type ConvMode int

const (
	ConvSame ConvMode = iota
	ConvFull
	ConvValid
)

// PadMode selects the boundary handling of ConvolveFFT.
type PadMode int

const (
	PadZeros PadMode = iota
	PadReflect
	PadReplicate
	PadCircular
)

var (
	ErrEmptyInput     = errors.New("frame: empty image or kernel")
	ErrKernelTooLarge = errors.New("frame: valid convolution requested but kernel larger than image")
)

// Convolve performs direct spatial convolution of image with a small kernel.
// ConvValid yields an output shrunk by the kernel extent minus one in each
// dimension; ConvSame zero-pads so the output matches the image shape.
// Direct evaluation is preferred over the FFT path whenever the kernel is a
// handful of pixels, which is the case for photometric apertures.
func Convolve(image, kernel Frame, mode ConvMode) (Frame, error) {
	h, w, err := image.Dims()
	if err != nil {
		return nil, err
	}
	kh, kw, err := kernel.Dims()
	if err != nil {
		return nil, err
	}
	if h == 0 || w == 0 || kh == 0 || kw == 0 {
		return nil, ErrEmptyInput
	}

	switch mode {
	case ConvValid:
		outH := h - kh + 1
		outW := w - kw + 1
		if outH <= 0 || outW <= 0 {
			return nil, ErrKernelTooLarge
		}
		out := New(outH, outW)
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				sum := 0.0
				for ky := 0; ky < kh; ky++ {
					for kx := 0; kx < kw; kx++ {
						// Convolution flips the kernel; the apertures in use
						// are symmetric but the arithmetic stays general.
						sum += image[y+ky][x+kx] * kernel[kh-1-ky][kw-1-kx]
					}
				}
				out[y][x] = sum
			}
		}
		return out, nil

	case ConvSame:
		offY := kh / 2
		offX := kw / 2
		out := New(h, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum := 0.0
				for ky := 0; ky < kh; ky++ {
					for kx := 0; kx < kw; kx++ {
						iy := y + ky - offY
						ix := x + kx - offX
						if iy < 0 || iy >= h || ix < 0 || ix >= w {
							continue
						}
						sum += image[iy][ix] * kernel[kh-1-ky][kw-1-kx]
					}
				}
				out[y][x] = sum
			}
		}
		return out, nil
	}

	return nil, errors.New("frame: unsupported ConvMode for direct convolution")
}

// ConvolveFFT convolves image with a kernel using 2-D FFTs.
//
// mode:     Same, Full, Valid
// pad:      Zeros, Reflect, Replicate, Circular
// centered: true when the kernel is stored with its peak near the middle
// (typical for PSFs); the kernel is then ifft-shifted before use.
//
// Returns a real-valued output in the same units as the input.
func ConvolveFFT(image, kernel Frame, mode ConvMode, pad PadMode, centered bool) (Frame, error) {
	h, w, err := image.Dims()
	if err != nil {
		return nil, err
	}
	kh, kw, err := kernel.Dims()
	if err != nil {
		return nil, err
	}
	if h == 0 || w == 0 || kh == 0 || kw == 0 {
		return nil, ErrEmptyInput
	}

	var outH, outW int
	switch mode {
	case ConvSame:
		outH, outW = h, w
	case ConvFull:
		outH, outW = h+kh-1, w+kw-1
	case ConvValid:
		outH, outW = h-kh+1, w-kw+1
		if outH <= 0 || outW <= 0 {
			return nil, ErrKernelTooLarge
		}
	default:
		return nil, errors.New("frame: unknown ConvMode")
	}

	// FFT grid for linear convolution: at least full size. Powers of two are
	// usually faster with gonum even though any length works.
	fh := nextPow2(h + kh - 1)
	fw := nextPow2(w + kw - 1)

	a := makeComplex2D(fh, fw)
	b := makeComplex2D(fh, fw)

	// Embed the image in the top-left of the FFT grid; the padding policy
	// only matters for boundary handling other than zeros.
	for y := 0; y < fh; y++ {
		for x := 0; x < fw; x++ {
			a[y][x] = complex(sample2D(image, y, x, pad), 0)
		}
	}

	if centered {
		shifted := ifftshift2D(kernel)
		for y := 0; y < kh; y++ {
			for x := 0; x < kw; x++ {
				b[y][x] = complex(shifted[y][x], 0)
			}
		}
	} else {
		for y := 0; y < kh; y++ {
			for x := 0; x < kw; x++ {
				b[y][x] = complex(kernel[y][x], 0)
			}
		}
	}

	fft2InPlace(a, true)
	fft2InPlace(b, true)

	for y := 0; y < fh; y++ {
		for x := 0; x < fw; x++ {
			a[y][x] *= b[y][x]
		}
	}

	fft2InPlace(a, false)

	// Gonum transforms are unnormalized: forward then inverse multiplies by
	// the grid size.
	scale := float64(fh * fw)

	full := New(h+kh-1, w+kw-1)
	for y := range full {
		for x := range full[y] {
			full[y][x] = real(a[y][x]) / scale
		}
	}

	switch mode {
	case ConvFull:
		return full, nil

	case ConvSame:
		offY := kh / 2
		offX := kw / 2
		out := make(Frame, h)
		for y := 0; y < h; y++ {
			out[y] = make([]float64, w)
			copy(out[y], full[y+offY][offX:offX+w])
		}
		return out, nil

	case ConvValid:
		startY := kh - 1
		startX := kw - 1
		out := make(Frame, outH)
		for y := 0; y < outH; y++ {
			out[y] = make([]float64, outW)
			copy(out[y], full[y+startY][startX:startX+outW])
		}
		return out, nil
	}

	return nil, errors.New("frame: unreachable")
}

// CrossCorrelate computes the circular cross-correlation of a with b via
// FFTs. The output has the shape of the inputs; the peak position gives the
// cyclic shift that best aligns b onto a.
func CrossCorrelate(a, b Frame) (Frame, error) {
	h, w, err := a.Dims()
	if err != nil {
		return nil, err
	}
	bh, bw, err := b.Dims()
	if err != nil {
		return nil, err
	}
	if h == 0 || w == 0 {
		return nil, ErrEmptyInput
	}
	if h != bh || w != bw {
		return nil, errors.New("frame: cross-correlation inputs must share shape")
	}

	fa := makeComplex2D(h, w)
	fb := makeComplex2D(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fa[y][x] = complex(a[y][x], 0)
			fb[y][x] = complex(b[y][x], 0)
		}
	}

	fft2InPlace(fa, true)
	fft2InPlace(fb, true)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			re, im := real(fb[y][x]), imag(fb[y][x])
			fa[y][x] *= complex(re, -im)
		}
	}

	fft2InPlace(fa, false)

	scale := float64(h * w)
	out := New(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y][x] = real(fa[y][x]) / scale
		}
	}
	return out, nil
}

// -------------------- FFT helpers --------------------

func fft2InPlace(a [][]complex128, forward bool) {
	h := len(a)
	w := len(a[0])

	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(tmp, a[y])
		if forward {
			rowFFT.Coefficients(tmp, tmp)
		} else {
			rowFFT.Sequence(tmp, tmp)
		}
		copy(a[y], tmp)
	}

	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		if forward {
			colFFT.Coefficients(col, col)
		} else {
			colFFT.Sequence(col, col)
		}
		for y := 0; y < h; y++ {
			a[y][x] = col[y]
		}
	}
}

// -------------------- padding + shifting --------------------

func sample2D(img Frame, y, x int, mode PadMode) float64 {
	h := len(img)
	w := len(img[0])

	if 0 <= y && y < h && 0 <= x && x < w {
		return img[y][x]
	}

	switch mode {
	case PadZeros:
		return 0

	case PadReplicate:
		return img[clamp(y, 0, h-1)][clamp(x, 0, w-1)]

	case PadReflect:
		return img[reflectIndex(y, h)][reflectIndex(x, w)]

	case PadCircular:
		return img[mod(y, h)][mod(x, w)]
	}

	return 0
}

// ifftshift2D moves the center of a centered kernel to (0,0).
func ifftshift2D(f Frame) Frame {
	h := len(f)
	w := len(f[0])
	out := New(h, w)
	shY := h / 2
	shX := w / 2
	for y := 0; y < h; y++ {
		yy := (y + shY) % h
		for x := 0; x < w; x++ {
			xx := (x + shX) % w
			out[y][x] = f[yy][xx]
		}
	}
	return out
}

// -------------------- utility --------------------

func makeComplex2D(h, w int) [][]complex128 {
	m := make([][]complex128, h)
	for i := range m {
		m[i] = make([]complex128, w)
	}
	return m
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}

// reflectIndex implements "reflect" padding without repeating edge pixels.
// Example for n=5 indices: ... 2 1 0 1 2 3 4 3 2 1 0 1 ...
func reflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2*n - 2
	i = mod(i, period)
	if i >= n {
		i = period - i
	}
	return i
}
