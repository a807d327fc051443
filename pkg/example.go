package mapvis

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"
)

type ExampleOptions struct {
	Detector string
	Datasets int
	Modules  int
	Channels int
	Seed     uint64
}

func DefaultExampleOptions() ExampleOptions {
	return ExampleOptions{Detector: "fta", Datasets: 3, Modules: 2, Channels: 12, Seed: 1}
}

var modulePrefixes = map[string]string{
	"fta": "A",
	"ftc": "C",
}

// GenerateExample builds a synthetic document whose factors decay by 5%
// per dataset with uniform noise. The same options always give the same
// document.
func GenerateExample(opts ExampleOptions) (*Document, error) {
	prefix, ok := modulePrefixes[opts.Detector]
	if !ok {
		return nil, &ErrInvalidOptions{Field: "detector", Reason: fmt.Sprintf("no example layout for %q (use fta or ftc)", opts.Detector)}
	}
	if opts.Datasets < 1 || opts.Modules < 1 || opts.Channels < 1 {
		return nil, &ErrInvalidOptions{Field: "example", Reason: "datasets, modules and channels must be positive"}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	doc := &Document{Datasets: make([]Dataset, opts.Datasets)}
	for i := range doc.Datasets {
		dataset := Dataset{
			Date:    base.AddDate(0, 0, 30*i).Format(time.DateOnly),
			Modules: make([]Module, opts.Modules),
		}
		for j := range dataset.Modules {
			module := Module{
				Identifier: fmt.Sprintf("%s%d", prefix, j),
				Channels:   make([]Channel, opts.Channels),
			}
			for k := range module.Channels {
				factor := 1 - 0.05*float64(i) + (rng.Float64()*0.2 - 0.1)
				factor = clamp(factor, 0.5, 1.2)
				module.Channels[k] = Channel{
					Name: fmt.Sprintf("CH%02d", k+1),
					Factors: map[string]float64{
						NormalizedGaussAgeingFactor:    round3(factor),
						NormalizedWeightedAgeingFactor: round3(factor * 0.98),
						GaussianAgeingFactor:           round3(factor * 1.1),
						WeightedAgeingFactor:           round3(factor * 1.05),
						AgeingFactor:                   round3(factor),
					},
				}
			}
			dataset.Modules[j] = module
		}
		doc.Datasets[i] = dataset
	}
	return doc, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// WriteDocument encodes doc as indented JSON in the input layout.
func WriteDocument(w io.Writer, doc *Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}
	return nil
}
