package mapvis

import (
	"fmt"
	"image"
	stdpalette "image/color/palette"
	imgdraw "image/draw"
	"image/gif"
	"io"
	"os"
)

type AnimationOptions struct {
	// DurationMs is the display time of each frame.
	DurationMs int
	// Loop is the GIF loop count; 0 loops forever.
	Loop int
	DPI  int
}

func DefaultAnimationOptions() AnimationOptions {
	return AnimationOptions{DurationMs: 500, Loop: 0, DPI: DefaultFrameDPI}
}

// RenderFrames builds one grid per available date in chronological order.
// Dates that fail to render are logged and skipped.
func RenderFrames(doc *Document, mapping *Mapping, opts Options) ([]*Grid, error) {
	var grids []*Grid
	for _, date := range AvailableDates(doc) {
		frameOpts := opts
		frameOpts.Date = date
		grid, err := BuildGrid(doc, mapping, frameOpts)
		if err != nil {
			errMessage := fmt.Errorf("error rendering frame for %s: %w", date, err)
			logger.Error(errMessage.Error())
			continue
		}
		grids = append(grids, grid)
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Rendered frame %d for date %s", len(grids), date)
			logger.Info(message, "gif")
		}
	}
	if len(grids) == 0 {
		return nil, ErrNoFrames
	}
	return grids, nil
}

// RenderGIF encodes every dataset of doc as one frame of an animated GIF and
// returns the number of frames written.
func RenderGIF(w io.Writer, doc *Document, mapping *Mapping, opts Options, anim AnimationOptions) (int, error) {
	if anim.DurationMs <= 0 {
		return 0, &ErrInvalidOptions{Field: "gif_duration", Reason: "must be positive"}
	}
	if anim.Loop < 0 {
		return 0, &ErrInvalidOptions{Field: "gif_loop", Reason: "must not be negative"}
	}
	if err := checkDPI(anim.DPI); err != nil {
		return 0, err
	}
	grids, err := RenderFrames(doc, mapping, opts)
	if err != nil {
		return 0, err
	}

	animation := &gif.GIF{LoopCount: anim.Loop}
	delay := max(1, anim.DurationMs/10)
	for _, grid := range grids {
		img, err := NewFigure(grid).Image(anim.DPI)
		if err != nil {
			return 0, err
		}
		animation.Image = append(animation.Image, paletted(img))
		animation.Delay = append(animation.Delay, delay)
	}
	if err := gif.EncodeAll(w, animation); err != nil {
		return 0, fmt.Errorf("error encoding gif: %w", err)
	}
	return len(grids), nil
}

// SaveGIF writes the animation to filename.
func SaveGIF(filename string, doc *Document, mapping *Mapping, opts Options, anim AnimationOptions) (int, error) {
	file, err := os.Create(filename)
	if err != nil {
		return 0, &ErrOpenFile{Filename: filename, Err: err}
	}
	n, err := RenderGIF(file, doc, mapping, opts, anim)
	if err != nil {
		file.Close()
		os.Remove(filename)
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("error closing %s: %w", filename, err)
	}
	return n, nil
}

func paletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	frame := image.NewPaletted(bounds, stdpalette.Plan9)
	imgdraw.Draw(frame, bounds, img, bounds.Min, imgdraw.Src)
	return frame
}
