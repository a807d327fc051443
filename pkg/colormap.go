package mapvis

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

const CustomColormap = "custom"

// morelandMaps are the continuous maps of gonum's moreland package, sampled
// into stops.
var morelandMaps = map[string]func() palette.ColorMap{
	"smooth-blue-red":     func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"kindlmann":           moreland.Kindlmann,
	"extended-kindlmann":  moreland.ExtendedKindlmann,
	"black-body":          moreland.BlackBody,
	"extended-black-body": moreland.ExtendedBlackBody,
}

const morelandStops = 32

// ColorScale is a linear colour scale between Min and Max whose stops are
// interpolated in CIE L*a*b*. It satisfies palette.ColorMap.
type ColorScale struct {
	name  string
	stops []colorful.Color
	min   float64
	max   float64
	alpha float64
}

// NewColorScale resolves a colormap name. Accepted names are ColorBrewer
// palettes (RdYlGn, Spectral, ...), the moreland maps, and "custom" with
// a list of hex colours. A "_r" suffix reverses the map.
func NewColorScale(name string, customColors []string) (*ColorScale, error) {
	base, reversed := strings.CutSuffix(name, "_r")

	var stops []colorful.Color
	var err error
	switch {
	case base == CustomColormap:
		stops, err = hexStops(customColors)
	case morelandMaps[strings.ToLower(base)] != nil:
		stops, err = morelandColorStops(morelandMaps[strings.ToLower(base)]())
	default:
		stops, err = brewerStops(base)
	}
	if err != nil {
		return nil, &ErrInvalidOptions{Field: "colormap", Reason: err.Error()}
	}
	if reversed {
		slices.Reverse(stops)
	}
	return &ColorScale{name: name, stops: stops, min: 0, max: 1, alpha: 1}, nil
}

func hexStops(colors []string) ([]colorful.Color, error) {
	if len(colors) < 2 {
		return nil, fmt.Errorf("custom colormap needs at least two colours, got %d", len(colors))
	}
	stops := make([]colorful.Color, len(colors))
	for i, hex := range colors {
		hex = strings.TrimSpace(hex)
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("custom colour %q: %w", colors[i], err)
		}
		stops[i] = c
	}
	return stops, nil
}

func brewerStops(name string) ([]colorful.Color, error) {
	// Brewer palettes come in several sizes; the largest one gives the
	// smoothest interpolation.
	for n := 12; n >= 3; n-- {
		p, err := brewer.GetPalette(brewer.TypeAny, name, n)
		if err != nil {
			continue
		}
		return toColorful(p.Colors())
	}
	return nil, fmt.Errorf("unknown colormap %q", name)
}

func morelandColorStops(cmap palette.ColorMap) ([]colorful.Color, error) {
	cmap.SetMin(0)
	cmap.SetMax(1)
	colors := make([]color.Color, morelandStops)
	for i := range colors {
		c, err := cmap.At(float64(i) / float64(morelandStops-1))
		if err != nil {
			return nil, err
		}
		colors[i] = c
	}
	return toColorful(colors)
}

func toColorful(colors []color.Color) ([]colorful.Color, error) {
	stops := make([]colorful.Color, 0, len(colors))
	for _, c := range colors {
		cf, ok := colorful.MakeColor(c)
		if !ok {
			return nil, fmt.Errorf("transparent colour %v in palette", c)
		}
		stops = append(stops, cf)
	}
	return stops, nil
}

func (s *ColorScale) Name() string {
	return s.name
}

// Fraction returns the colour at t in [0, 1]; t is clamped.
func (s *ColorScale) Fraction(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = clamp(t, 0, 1)
	segments := len(s.stops) - 1
	pos := t * float64(segments)
	i := int(math.Floor(pos))
	if i >= segments {
		i = segments - 1
	}
	c := s.stops[i].BlendLab(s.stops[i+1], pos-float64(i)).Clamped()
	r, g, b := c.RGB255()
	a := uint8(math.Round(255 * s.alpha))
	return color.RGBA{
		R: uint8(uint16(r) * uint16(a) / 255),
		G: uint8(uint16(g) * uint16(a) / 255),
		B: uint8(uint16(b) * uint16(a) / 255),
		A: a,
	}
}

// At implements palette.ColorMap. Values within a rounding margin of the
// bounds are clamped.
func (s *ColorScale) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, palette.ErrNaN
	}
	margin := 1e-9 * math.Abs(s.max-s.min)
	switch {
	case v < s.min-margin:
		return nil, palette.ErrUnderflow
	case v > s.max+margin:
		return nil, palette.ErrOverflow
	}
	return s.Fraction(normalize(v, s.min, s.max)), nil
}

func (s *ColorScale) Max() float64       { return s.max }
func (s *ColorScale) SetMax(v float64)   { s.max = v }
func (s *ColorScale) Min() float64       { return s.min }
func (s *ColorScale) SetMin(v float64)   { s.min = v }
func (s *ColorScale) Alpha() float64     { return s.alpha }
func (s *ColorScale) SetAlpha(a float64) { s.alpha = clamp(a, 0, 1) }

type colorList []color.Color

func (c colorList) Colors() []color.Color { return c }

// Palette samples the scale into n evenly spaced colours.
func (s *ColorScale) Palette(n int) palette.Palette {
	colors := make(colorList, n)
	for i := range colors {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		colors[i] = s.Fraction(t)
	}
	return colors
}
