package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// showResults opens the science-image window and a second window holding the
// contrast-curve plot, then enters the fyne event loop (does not return until
// the user closes the main window).
func showResults(myApp fyne.App, w fyne.Window, job ContrastJob, displayPath, plotPath string) {
	size := job.WindowSizePixels

	// w is our main window, created at the beginning of the program
	w.SetTitle(job.Title)
	w.SetPadded(false)
	w.CenterOnScreen()

	img := canvas.NewImageFromFile(displayPath)
	img.FillMode = canvas.ImageFillContain
	w.Resize(fyne.Size{Height: float32(size), Width: float32(size)})
	w.SetContent(container.NewStack(img))
	w.Show()

	plotImg := canvas.NewImageFromFile(plotPath)
	plotImg.FillMode = canvas.ImageFillContain
	plotImg.SetMinSize(fyne.NewSize(1200, 500))

	w2 := myApp.NewWindow("Contrast curve")
	w2.SetContent(container.NewCenter(plotImg))
	w2.Resize(fyne.NewSize(950, 550))
	w2.Show()

	w.ShowAndRun()
}
