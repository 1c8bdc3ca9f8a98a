package contrast

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

// WriteCurveText writes the curve as two parallel columns: separation in
// arcseconds (after applying pixelScale) and dimensionless contrast. One line
// per occupied annulus.
func WriteCurveText(path string, c Curve, pixelScale float64) (err error) {
	if len(c.Values) == 0 {
		return errors.New("contrast: empty curve")
	}
	if len(c.Values) > len(c.RadiusPx) {
		return errors.New("contrast: more values than bin edges")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	radii := c.RadiusArcsec(pixelScale)
	if _, err := fmt.Fprintln(f, "# separation_arcsec contrast"); err != nil {
		return err
	}
	for i, v := range c.Values {
		if _, err := fmt.Fprintf(f, "%.6f %.6e\n", radii[i], v); err != nil {
			return err
		}
	}
	return nil
}

// WriteCurveFITS writes the curve as a 2 x N primary image HDU: row 0 holds
// the separations in arcseconds, row 1 the contrast values. The pixel scale
// used for the conversion is recorded in the header.
func WriteCurveFITS(path string, c Curve, pixelScale float64) error {
	if len(c.Values) == 0 {
		return errors.New("contrast: empty curve")
	}

	n := len(c.Values)
	table := frame.New(2, n)
	radii := c.RadiusArcsec(pixelScale)
	for i := 0; i < n; i++ {
		table[0][i] = radii[i]
		table[1][i] = c.Values[i]
	}

	return frame.WriteFITS(path, table,
		fitsio.Card{Name: "PIXSCALE", Value: pixelScale, Comment: "arcsec per detector pixel"},
		fitsio.Card{Name: "NANNULI", Value: len(c.RadiusPx), Comment: "requested radial bins"},
	)
}

func savePNG(filename string, img image.Image) (err error) {
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
