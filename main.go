package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	json "github.com/KevinWang15/go-json5"
	"github.com/astrogo/fitsio"

	"github.com/juliengirard/pandeia-coronagraphy/contrast"
	"github.com/juliengirard/pandeia-coronagraphy/frame"
	"github.com/juliengirard/pandeia-coronagraphy/klip"
	"github.com/juliengirard/pandeia-coronagraphy/register"
)

// !!!!! This MUST match the version given in the run configuration !!!!!
const version = "0_3_0"

func main() {

	programStart := time.Now()

	// We supply an ID (hopefully unique) because we may need to use the preferences API
	myApp := app.NewWithID("com.github.juliengirard.coronagraphy")
	w := myApp.NewWindow("CoronagraphContrast - JWST coronagraphic PSF subtraction and contrast curves")
	w.Resize(fyne.Size{Height: 800, Width: 1200})

	args := os.Args

	if len(args) != 2 {
		fmt.Println("\n\tWrong number of arguments.\n\tUsage: CoronagraphContrast <parameter-file>")
		os.Exit(1)
	}

	path := args[1]

	// Read the Json5 (or Json) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read input file %q failed: %w\n", path, err))
		os.Exit(2)
	}

	// Parse json(5) data into a generic container
	var jsonTable map[string]interface{}
	err = json.Unmarshal(data, &jsonTable)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tFormat error in file %q: %w\n", path, err))
		os.Exit(3)
	}

	var job ContrastJob
	msg, ok := validateJsonFileAndFillJob(jsonTable, &job)
	if !ok {
		fmt.Println(msg)
		os.Exit(4)
	}

	// Check for user wanting printout of complete jsonTable
	if job.ShowInput {
		fmt.Printf("%s", "\nPrintout of complete jsonTable contents...\n")
		fmt.Println(string(data))
	}

	fmt.Printf("\nVersion %s\n\n", version)

	occulted, err := frame.ReadFITS(job.OccultedFitsPath)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read occulted frame failed: %w\n", err))
		os.Exit(5)
	}
	unocculted, err := frame.ReadFITS(job.UnoccultedFitsPath)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read unocculted frame failed: %w\n", err))
		os.Exit(6)
	}

	// Saturated pixels come out of the engine as NaN and must be replaced
	// before any convolution touches them.
	if n := frame.SanitizeNaNs(occulted, job.NaNPolicy); n > 0 {
		fmt.Printf("Replaced %d invalid pixels in the occulted frame\n", n)
	}
	if n := frame.SanitizeNaNs(unocculted, job.NaNPolicy); n > 0 {
		fmt.Printf("Replaced %d invalid pixels in the unocculted frame\n", n)
	}

	science := occulted

	if len(job.ReferenceFitsPaths) > 0 {
		start := time.Now()

		refs := make([]frame.Frame, 0, len(job.ReferenceFitsPaths))
		for _, refPath := range job.ReferenceFitsPaths {
			ref, err := frame.ReadFITS(refPath)
			if err != nil {
				fmt.Println(fmt.Errorf("\n\tAttempt to read reference frame %q failed: %w\n", refPath, err))
				os.Exit(7)
			}
			if n := frame.SanitizeNaNs(ref, job.NaNPolicy); n > 0 {
				fmt.Printf("Replaced %d invalid pixels in reference %q\n", n, refPath)
			}

			res, err := register.Align(ref, occulted, job.RescaleFlux)
			if err != nil {
				fmt.Println(fmt.Errorf("\n\tRegistration of %q failed: %w\n", refPath, err))
				os.Exit(8)
			}
			fmt.Printf("Registered %q: shift (%.3f, %.3f) px, flux scale %.4f\n",
				refPath, res.ShiftRows, res.ShiftCols, res.FluxScale)
			refs = append(refs, res.Aligned)
		}

		library, err := klip.NewLibrary(refs)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tBuilding the KLIP library failed: %w\n", err))
			os.Exit(9)
		}
		fmt.Printf("KLIP library holds %d usable modes\n", library.Modes())

		science, err = klip.Subtract(occulted, library, job.KlipModes)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tKLIP subtraction failed: %w\n", err))
			os.Exit(10)
		}

		fmt.Printf("PSF subtraction took %s\n", time.Since(start))

		subtractedPath := filepath.Join(job.OutputFolder, "subtracted.fits")
		err = frame.WriteFITS(subtractedPath, science,
			fitsio.Card{Name: "KLMODES", Value: job.KlipModes, Comment: "KL modes requested"},
			fitsio.Card{Name: "NREFS", Value: len(refs), Comment: "reference frames in library"},
		)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tWriting of %q failed: %w\n", subtractedPath, err))
			os.Exit(11)
		}
	}

	// Make a user-friendly .png of the science frame
	imgForDisplay, err := frame.ToGrayPercentile(science, 0.5, 99.5)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tCreation of the display image failed: %w\n", err))
		os.Exit(12)
	}
	displayPath := filepath.Join(job.OutputFolder, "scienceImage8bit.png")
	err = frame.SavePNG(displayPath, imgForDisplay)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tWriting of %q failed: %w\n", displayPath, err))
		os.Exit(13)
	}

	start := time.Now()
	curve, err := contrast.Estimate(science, unocculted, job.NAnnuli)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tContrast estimation failed: %w\n", err))
		os.Exit(14)
	}
	fmt.Printf("Contrast estimation over %d annuli took %s\n", job.NAnnuli, time.Since(start))

	curveTextPath := filepath.Join(job.OutputFolder, "contrast_curve.txt")
	if err := contrast.WriteCurveText(curveTextPath, curve, job.PixelScaleArcsec); err != nil {
		fmt.Println(fmt.Errorf("\n\tWriting of %q failed: %w\n", curveTextPath, err))
		os.Exit(15)
	}

	curveFitsPath := filepath.Join(job.OutputFolder, "contrast_curve.fits")
	if err := contrast.WriteCurveFITS(curveFitsPath, curve, job.PixelScaleArcsec); err != nil {
		fmt.Println(fmt.Errorf("\n\tWriting of %q failed: %w\n", curveFitsPath, err))
		os.Exit(16)
	}

	plotPath := filepath.Join(job.OutputFolder, "contrast_plot.png")
	err = contrast.SaveCurvePlot(plotPath, curve, job.PixelScaleArcsec, job.Title, 1200, 500)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tWriting of %q failed: %w\n", plotPath, err))
		os.Exit(17)
	}

	fmt.Printf("\nTotal program run time is %s\n", time.Since(programStart))

	if job.WindowSizePixels > 0 { // We have displays to make!
		showResults(myApp, w, job, displayPath, plotPath)
	}
}
