package mapvis

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGrid(t *testing.T) {
	rec := useRecordingLogger(t)
	doc := loadTestDocument(t, twoDatesJSON)
	mapping := testMapping(t)

	grid, err := BuildGrid(doc, mapping, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "2024-02-01", grid.Date)
	assert.Equal(t, "2024-01-01", grid.ReferenceDate)
	require.Len(t, grid.Cells, 4)
	assert.Equal(t, 2, grid.Populated())
	assert.Equal(t, []string{"A0:CH77"}, grid.Unmapped)
	assert.True(t, rec.warned("A0:CH77"))

	first := grid.Cells[0]
	assert.Equal(t, "A0:CH01", first.Key)
	assert.True(t, first.HasValue)
	assert.InDelta(t, 0.8, first.Value, 1e-12)
	assert.InDelta(t, 0.5, first.Normalized, 1e-12)
	// mid-range values get a dark label
	assert.Equal(t, color.RGBA{A: 255}, first.Label)

	second := grid.Cells[1]
	assert.InDelta(t, 1.0, second.Normalized, 1e-12)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, second.Label)

	for _, blank := range grid.Cells[2:] {
		assert.False(t, blank.HasValue)
		assert.Zero(t, blank.Fill)
	}
}

func TestBuildGridDeterministic(t *testing.T) {
	doc := loadTestDocument(t, twoDatesJSON)
	mapping := testMapping(t)
	opts := DefaultOptions()
	opts.Date = "2024-01-01"

	a, err := BuildGrid(doc, mapping, opts)
	require.NoError(t, err)
	b, err := BuildGrid(doc, mapping, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(Grid{}, "Scale")); diff != "" {
		t.Errorf("BuildGrid() not deterministic (-first +second):\n%s", diff)
	}
}

func TestBuildGridErrors(t *testing.T) {
	doc := loadTestDocument(t, twoDatesJSON)
	mapping := testMapping(t)

	opts := DefaultOptions()
	opts.Date = "2030-01-01"
	_, err := BuildGrid(doc, mapping, opts)
	assert.ErrorIs(t, err, ErrDateNotFound)

	opts = DefaultOptions()
	opts.FactorType = WeightedAgeingFactor
	_, err = BuildGrid(doc, mapping, opts)
	assert.ErrorIs(t, err, ErrParameterNotFound)

	opts = DefaultOptions()
	opts.VMin, opts.VMax = 1, 1
	_, err = BuildGrid(doc, mapping, opts)
	var invalid *ErrInvalidOptions
	assert.ErrorAs(t, err, &invalid)

	opts = DefaultOptions()
	opts.Colormap = "NotAColormap"
	_, err = BuildGrid(doc, mapping, opts)
	assert.ErrorAs(t, err, &invalid)
}

func TestBuildGridFactorMissingForDate(t *testing.T) {
	doc := loadTestDocument(t, twoDatesJSON)
	opts := DefaultOptions()
	opts.FactorType = GaussianAgeingFactor

	// gaussian factors only exist in the first dataset
	grid, err := BuildGrid(doc, testMapping(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, grid.Populated())
}

func TestGridTitle(t *testing.T) {
	grid := &Grid{Detector: "fta", FactorType: NormalizedGaussAgeingFactor, Date: "2024-02-01", ReferenceDate: "2024-01-01"}
	assert.Equal(t, "Normalized Gaussian - FTA\n2024-02-01 vs 2024-01-01", grid.Title())

	grid.Date = "2024-01-01"
	assert.Equal(t, "Normalized Gaussian - FTA\n2024-01-01", grid.Title())
}
