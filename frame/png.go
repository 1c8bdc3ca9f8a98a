package frame

import (
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"sort"
)

// ToGray16 maps a Frame to a 16-bit grayscale image with a fixed physical
// scaling: Y16 = round(v * scale), clamped to [0, 65535]. Invalid samples
// map to 0.
func ToGray16(f Frame, scale float64) (*image.Gray16, error) {
	rows, cols, err := f.Dims()
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, errors.New("frame: empty frame")
	}
	if scale <= 0 {
		return nil, errors.New("frame: scale must be > 0")
	}

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		row := y * img.Stride
		for x := 0; x < cols; x++ {
			v := f[y][x]
			i := row + 2*x
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[i], img.Pix[i+1] = 0, 0
				continue
			}
			u := math.Round(v * scale)
			if u < 0 {
				u = 0
			} else if u > 65535 {
				u = 65535
			}
			y16 := uint16(u)
			// Gray16 Pix is big-endian per pixel: high then low
			img.Pix[i] = uint8(y16 >> 8)
			img.Pix[i+1] = uint8(y16)
		}
	}
	return img, nil
}

// ToGrayPercentile maps a Frame to an 8-bit grayscale view image with a
// percentile stretch: samples at pLow and pHigh map to 0 and 255, values
// outside are clamped. Robust to hot pixels, which a plain min/max stretch
// is not.
func ToGrayPercentile(f Frame, pLow, pHigh float64) (*image.Gray, error) {
	rows, cols, err := f.Dims()
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, errors.New("frame: empty frame")
	}
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, errors.New("frame: percentiles must satisfy 0 <= pLow < pHigh <= 100")
	}

	vals := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := f[y][x]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("frame: frame has no finite values")
	}

	sort.Float64s(vals)

	percentile := func(p float64) float64 {
		if p <= 0 {
			return vals[0]
		}
		if p >= 100 {
			return vals[len(vals)-1]
		}
		pos := (p / 100.0) * float64(len(vals)-1)
		i := int(math.Floor(pos))
		frac := pos - float64(i)
		if i >= len(vals)-1 {
			return vals[len(vals)-1]
		}
		return vals[i]*(1-frac) + vals[i+1]*frac
	}

	lo := percentile(pLow)
	hi := percentile(pHigh)
	if hi == lo {
		hi = lo + 1 // avoid divide-by-zero; image becomes mostly constant
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		row := y * img.Stride
		for x := 0; x < cols; x++ {
			v := f[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[row+x] = 0
				continue
			}
			t := (v - lo) / (hi - lo)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			img.Pix[row+x] = uint8(math.Round(t * 255.0))
		}
	}
	return img, nil
}

// SavePNG writes any image to a PNG file.
func SavePNG(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
