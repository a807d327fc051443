package main

import (
	"image/color"
	"testing"

	mapvis "github.com/alice-fit/mapvisualizer_go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPreview(t *testing.T) {
	scale, err := mapvis.NewColorScale("RdYlGn", nil)
	require.NoError(t, err)
	grid := &mapvis.Grid{
		Detector:   "fta",
		FactorType: mapvis.NormalizedGaussAgeingFactor,
		Date:       "2024-01-01",
		Scale:      scale,
		Cells: []mapvis.Cell{
			{Key: "A0:CH01", Row: 0, Col: 0, Value: 0.91, HasValue: true, Fill: color.RGBA{R: 200, A: 255}, Label: color.RGBA{A: 255}},
			{Key: "A0:CH02", Row: 1, Col: 2},
		},
		Unmapped: []string{"A9:CH01"},
	}

	out := renderPreview(grid)
	assert.Contains(t, out, "Normalized Gaussian - FTA")
	assert.Contains(t, out, "0.91")
	assert.Contains(t, out, "--")
	assert.Contains(t, out, "1/2 cells with data")
	assert.Contains(t, out, "Unmapped: A9:CH01")
}

func TestRenderPreviewEmpty(t *testing.T) {
	grid := &mapvis.Grid{Detector: "ftc", FactorType: mapvis.AgeingFactor}
	assert.Contains(t, renderPreview(grid), "No data available")
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, "#ff8000", hexColor(color.RGBA{R: 255, G: 128, A: 255}))
}
