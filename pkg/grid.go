package mapvis

import (
	"cmp"
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
)

type Options struct {
	FactorType   string
	Date         string
	Colormap     string
	CustomColors []string
	VMin         float64
	VMax         float64
}

func DefaultOptions() Options {
	return DefaultConfiguration().Options()
}

func (o Options) Validate() error {
	if o.FactorType == "" {
		return &ErrInvalidOptions{Field: "factor_type", Reason: "must not be empty"}
	}
	if math.IsNaN(o.VMin) || math.IsNaN(o.VMax) || math.IsInf(o.VMin, 0) || math.IsInf(o.VMax, 0) {
		return &ErrInvalidOptions{Field: "vmin/vmax", Reason: "must be finite"}
	}
	if o.VMin >= o.VMax {
		return &ErrInvalidOptions{Field: "vmin/vmax", Reason: fmt.Sprintf("vmin (%g) must be lower than vmax (%g)", o.VMin, o.VMax)}
	}
	return nil
}

// Cell is one mapped position of the detector. Blank cells have no value
// in the selected dataset and carry no colour.
type Cell struct {
	Key        string
	Row        float64
	Col        float64
	Value      float64
	HasValue   bool
	Normalized float64
	Fill       color.RGBA
	Label      color.RGBA
}

type Grid struct {
	Detector      string
	FactorType    string
	Date          string
	ReferenceDate string
	Cells         []Cell
	// Unmapped lists data keys that have no position in the mapping.
	Unmapped []string
	Scale    *ColorScale
}

var (
	labelDark  = color.RGBA{A: 255}
	labelLight = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func normalize[T constraints.Float](v, lo, hi T) T {
	return (v - lo) / (hi - lo)
}

func clamp[T constraints.Float](v, lo, hi T) T {
	return max(lo, min(hi, v))
}

// ExtractFactors returns the values of kind for every channel of the
// dataset selected by date, keyed by MODULE:CHANNEL. An empty date selects
// the last dataset.
func ExtractFactors(doc *Document, date string, kind string) (map[string]float64, *Dataset, error) {
	dataset, err := doc.Dataset(date)
	if err != nil {
		return nil, nil, err
	}
	factors := make(map[string]float64)
	for _, module := range dataset.Modules {
		for _, channel := range module.Channels {
			key := NormalizeKey(module.Identifier, channel.Name)
			if value, ok := channel.Factor(kind); ok {
				factors[key] = value
			} else if configuration.Verbosity > 1 {
				message := fmt.Sprintf("No %s for %s", kind, key)
				logger.Info(message, "grid")
			}
		}
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Extracted %d %s factors for date: %s", len(factors), kind, dataset.Date)
		logger.Info(message, "grid")
	}
	return factors, dataset, nil
}

// BuildGrid colours every position of the mapping with the selected ageing
// factor. The result depends only on its inputs; cells are ordered by row,
// column and key.
func BuildGrid(doc *Document, mapping *Mapping, opts Options) (*Grid, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !slices.Contains(AvailableParameters(doc), opts.FactorType) {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrParameterNotFound, opts.FactorType, strings.Join(AvailableParameters(doc), ", "))
	}
	scale, err := NewColorScale(opts.Colormap, opts.CustomColors)
	if err != nil {
		return nil, err
	}
	scale.SetMin(opts.VMin)
	scale.SetMax(opts.VMax)

	factors, dataset, err := ExtractFactors(doc, opts.Date, opts.FactorType)
	if err != nil {
		return nil, err
	}

	grid := &Grid{
		Detector:      mapping.Name,
		FactorType:    opts.FactorType,
		Date:          dataset.Date,
		ReferenceDate: doc.ReferenceDate(),
		Cells:         make([]Cell, 0, mapping.ChannelCount()),
		Scale:         scale,
	}
	for key, pos := range mapping.Entries {
		cell := Cell{Key: key, Row: pos.Row, Col: pos.Col}
		if value, ok := factors[key]; ok {
			cell.Value = value
			cell.HasValue = true
			cell.Normalized = normalize(value, opts.VMin, opts.VMax)
			cell.Fill = scale.Fraction(cell.Normalized)
			cell.Label = labelLight
			if cell.Normalized > 0.3 && cell.Normalized < 0.7 {
				cell.Label = labelDark
			}
		}
		grid.Cells = append(grid.Cells, cell)
	}
	slices.SortFunc(grid.Cells, func(a, b Cell) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col), strings.Compare(a.Key, b.Key))
	})

	for key := range factors {
		if _, ok := mapping.Position(key); !ok {
			grid.Unmapped = append(grid.Unmapped, key)
		}
	}
	slices.Sort(grid.Unmapped)
	if len(grid.Unmapped) > 0 {
		message := fmt.Sprintf("%d channels have no position in mapping %s: %s", len(grid.Unmapped), mapping.Name, strings.Join(grid.Unmapped, ", "))
		logger.Warn(message, "grid")
	}
	return grid, nil
}

// Populated counts the cells that carry a value.
func (g *Grid) Populated() int {
	n := 0
	for _, c := range g.Cells {
		if c.HasValue {
			n++
		}
	}
	return n
}

// Title follows the "<factor> - <DETECTOR>\n<date> vs <reference>" layout.
func (g *Grid) Title() string {
	title := fmt.Sprintf("%s - %s", DisplayName(g.FactorType), strings.ToUpper(g.Detector))
	switch {
	case g.Date != "" && g.ReferenceDate != "" && g.Date != g.ReferenceDate:
		title += fmt.Sprintf("\n%s vs %s", g.Date, g.ReferenceDate)
	case g.Date != "":
		title += "\n" + g.Date
	}
	return title
}
