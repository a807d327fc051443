package mapvis

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"
)

func TestColorScaleEndpoints(t *testing.T) {
	scale, err := NewColorScale(CustomColormap, []string{"#ff0000", "0000ff"})
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, A: 255}, scale.Fraction(0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, scale.Fraction(1))
	// out of range values are clamped
	assert.Equal(t, scale.Fraction(1), scale.Fraction(3))
	assert.Equal(t, scale.Fraction(0), scale.Fraction(-1))
}

func TestColorScaleReversed(t *testing.T) {
	forward, err := NewColorScale("RdYlGn", nil)
	require.NoError(t, err)
	reversed, err := NewColorScale("RdYlGn_r", nil)
	require.NoError(t, err)

	assert.Equal(t, forward.Fraction(0), reversed.Fraction(1))
	assert.Equal(t, forward.Fraction(1), reversed.Fraction(0))
}

func TestColorScaleNames(t *testing.T) {
	for _, name := range []string{"RdYlGn", "Spectral", "Blues", "smooth-blue-red", "black-body_r"} {
		_, err := NewColorScale(name, nil)
		assert.NoError(t, err, name)
	}

	_, err := NewColorScale("jet-ish", nil)
	var invalid *ErrInvalidOptions
	assert.ErrorAs(t, err, &invalid)

	_, err = NewColorScale(CustomColormap, []string{"#fff"})
	assert.ErrorAs(t, err, &invalid)
	_, err = NewColorScale(CustomColormap, []string{"#ffffff", "not-a-colour"})
	assert.ErrorAs(t, err, &invalid)
}

func TestMorelandScales(t *testing.T) {
	for name := range morelandMaps {
		scale, err := NewColorScale(name, nil)
		require.NoError(t, err, name)
		assert.NotEqual(t, scale.Fraction(0), scale.Fraction(1), name)
	}
}

func TestColorScaleColorMap(t *testing.T) {
	scale, err := NewColorScale("RdYlGn", nil)
	require.NoError(t, err)
	var cmap palette.ColorMap = scale
	cmap.SetMin(0.4)
	cmap.SetMax(1.2)

	c, err := cmap.At(0.8)
	require.NoError(t, err)
	assert.Equal(t, scale.Fraction(0.5), c)

	_, err = cmap.At(0.1)
	assert.ErrorIs(t, err, palette.ErrUnderflow)
	_, err = cmap.At(2)
	assert.ErrorIs(t, err, palette.ErrOverflow)

	assert.Len(t, cmap.Palette(7).Colors(), 7)
}
