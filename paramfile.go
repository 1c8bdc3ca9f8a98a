package main

import (
	"fmt"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

// ContrastJob collects everything the post-processing run needs, filled from
// the JSON5 parameter file.
type ContrastJob struct {
	Title              string
	OccultedFitsPath   string
	UnoccultedFitsPath string
	ReferenceFitsPaths []string
	KlipModes          int
	NAnnuli            int
	PixelScaleArcsec   float64
	RescaleFlux        bool
	NaNPolicy          frame.NaNPolicy
	OutputFolder       string
	WindowSizePixels   int
	ShowInput          bool
}

func getLeafValue(jsonTable map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = jsonTable
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func validateJsonFileAndFillJob(jsonTable map[string]interface{}, job *ContrastJob) (string, bool) {
	msg := "No problem found in json file" // Initialize msg to presumed success.

	showInput, ok := getLeafValue(jsonTable, "show_input_bool")
	if !ok {
		job.ShowInput = false // default to false if this field is missing
	} else {
		job.ShowInput, ok = showInput.(bool)
		if !ok {
			msg = "show_input_bool: is not a bool"
			return msg, false
		}
	}

	title, ok := getLeafValue(jsonTable, "title")
	if !ok {
		job.Title = "Coronagraphic contrast"
	} else {
		job.Title, ok = title.(string)
		if !ok {
			msg = "title: is not a string"
			return msg, false
		}
	}

	occulted, ok := getLeafValue(jsonTable, "occulted_fits_path")
	if !ok {
		msg = "occulted_fits_path: not found"
		return msg, false
	}
	job.OccultedFitsPath, ok = occulted.(string)
	if !ok {
		msg = "occulted_fits_path: is not a string"
		return msg, false
	}

	unocculted, ok := getLeafValue(jsonTable, "unocculted_fits_path")
	if !ok {
		msg = "unocculted_fits_path: not found"
		return msg, false
	}
	job.UnoccultedFitsPath, ok = unocculted.(string)
	if !ok {
		msg = "unocculted_fits_path: is not a string"
		return msg, false
	}

	refs, ok := getLeafValue(jsonTable, "reference_fits_paths")
	if ok {
		list, isList := refs.([]interface{})
		if !isList {
			msg = "reference_fits_paths: is not a list"
			return msg, false
		}
		for i, entry := range list {
			path, isString := entry.(string)
			if !isString {
				msg = fmt.Sprintf("reference_fits_paths[%d]: is not a string", i)
				return msg, false
			}
			job.ReferenceFitsPaths = append(job.ReferenceFitsPaths, path)
		}
	}

	klipModes, ok := getLeafValue(jsonTable, "klip_modes_num")
	if !ok {
		job.KlipModes = 10 // Default: truncate the KL basis at 10 modes
	} else {
		modes, isNum := klipModes.(float64)
		if !isNum {
			msg = "klip_modes_num: is not a number"
			return msg, false
		}
		job.KlipModes = int(modes)
	}

	nAnnuli, ok := getLeafValue(jsonTable, "n_annuli_num")
	if !ok {
		job.NAnnuli = 30 // Default to 30 radial bins if this field is missing
	} else {
		n, isNum := nAnnuli.(float64)
		if !isNum {
			msg = "n_annuli_num: is not a number"
			return msg, false
		}
		job.NAnnuli = int(n)
	}
	if job.NAnnuli < 2 {
		msg = fmt.Sprintf("n_annuli_num: must be at least 2, got %d", job.NAnnuli)
		return msg, false
	}

	pixelScale, ok := getLeafValue(jsonTable, "pixel_scale_arcsec")
	if !ok {
		msg = "pixel_scale_arcsec: not found"
		return msg, false
	}
	job.PixelScaleArcsec, ok = pixelScale.(float64)
	if !ok {
		msg = "pixel_scale_arcsec: is not a number"
		return msg, false
	}
	if job.PixelScaleArcsec <= 0 {
		msg = fmt.Sprintf("pixel_scale_arcsec: must be positive, got %g", job.PixelScaleArcsec)
		return msg, false
	}

	rescale, ok := getLeafValue(jsonTable, "rescale_flux_bool")
	if !ok {
		job.RescaleFlux = true // Default: match reference flux to the science frame
	} else {
		job.RescaleFlux, ok = rescale.(bool)
		if !ok {
			msg = "rescale_flux_bool: is not a bool"
			return msg, false
		}
	}

	nanPolicy, ok := getLeafValue(jsonTable, "nan_policy")
	if !ok {
		job.NaNPolicy = frame.NaNToMax // Saturated pixels sit at the top of the range
	} else {
		policy, isString := nanPolicy.(string)
		if !isString {
			msg = "nan_policy: is not a string"
			return msg, false
		}
		switch policy {
		case "max":
			job.NaNPolicy = frame.NaNToMax
		case "mean":
			job.NaNPolicy = frame.NaNToMean
		case "zero":
			job.NaNPolicy = frame.NaNToZero
		default:
			msg = fmt.Sprintf("nan_policy: must be max, mean, or zero, got %q", policy)
			return msg, false
		}
	}

	outputFolder, ok := getLeafValue(jsonTable, "output_folder")
	if !ok {
		job.OutputFolder = "."
	} else {
		job.OutputFolder, ok = outputFolder.(string)
		if !ok {
			msg = "output_folder: is not a string"
			return msg, false
		}
	}

	windowSize, ok := getLeafValue(jsonTable, "window_size_pixels")
	if !ok {
		job.WindowSizePixels = 500 // Default to 500 pixels if this field is missing
	} else {
		wSize, isNum := windowSize.(float64)
		if !isNum {
			msg = "window_size_pixels: is not a float64"
			return msg, false
		}
		job.WindowSizePixels = int(wSize)
	}

	return msg, true
}
