package frame

import (
	"errors"
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// ReadFITS loads the primary HDU of a FITS file as a Frame. All integer and
// floating BITPIX values are accepted; samples are widened to float64.
// Blank/undefined pixels come back as NaN and should be run through
// SanitizeNaNs before analysis.
func ReadFITS(path string) (f Frame, err error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fits, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer func() {
		if cerr := fits.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	hdu := fits.HDU(0)
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%s: primary HDU is not an image", path)
	}

	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("%s: expected a 2-D image, got %d axes", path, len(axes))
	}
	cols, rows := axes[0], axes[1]
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%s: degenerate image axes %v", path, axes)
	}

	n := rows * cols
	pix := make([]float64, 0, n)

	switch hdr.Bitpix() {
	case -64:
		var data []float64
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		pix = data
	case -32:
		var data []float32
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, v := range data {
			pix = append(pix, float64(v))
		}
	case 8:
		var data []int8
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, v := range data {
			pix = append(pix, float64(v))
		}
	case 16:
		var data []int16
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, v := range data {
			pix = append(pix, float64(v))
		}
	case 32:
		var data []int32
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, v := range data {
			pix = append(pix, float64(v))
		}
	case 64:
		var data []int64
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, v := range data {
			pix = append(pix, float64(v))
		}
	default:
		return nil, fmt.Errorf("%s: unsupported BITPIX %d", path, hdr.Bitpix())
	}

	if len(pix) != n {
		return nil, fmt.Errorf("%s: pixel count %d does not match axes %v", path, len(pix), axes)
	}

	return FromVector(pix, rows, cols)
}

// WriteFITS writes a Frame as the primary HDU of a new FITS file with
// BITPIX -64. Extra header cards may be supplied for provenance.
func WriteFITS(path string, f Frame, cards ...fitsio.Card) (err error) {
	rows, cols, err := f.Dims()
	if err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return errors.New("frame: refusing to write empty frame")
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fits, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to start FITS file %s: %w", path, err)
	}
	defer func() {
		if cerr := fits.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img := fitsio.NewImage(-64, []int{cols, rows})
	defer func() {
		if cerr := img.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if len(cards) > 0 {
		if err := img.Header().Append(cards...); err != nil {
			return fmt.Errorf("failed to append header cards: %w", err)
		}
	}

	pix := f.Flatten()
	if err := img.Write(&pix); err != nil {
		return fmt.Errorf("failed to write pixels to %s: %w", path, err)
	}

	return fits.Write(img)
}
