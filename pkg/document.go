package mapvis

import (
	"fmt"
	"strings"
)

const (
	NormalizedGaussAgeingFactor    = "normalized_gauss_ageing_factor"
	NormalizedWeightedAgeingFactor = "normalized_weighted_ageing_factor"
	GaussianAgeingFactor           = "gaussian_ageing_factor"
	WeightedAgeingFactor           = "weighted_ageing_factor"
	AgeingFactor                   = "ageing_factor"
)

// AgeingFactorTypes lists the recognized ageing factor kinds in canonical order.
var AgeingFactorTypes = []string{
	NormalizedGaussAgeingFactor,
	NormalizedWeightedAgeingFactor,
	GaussianAgeingFactor,
	WeightedAgeingFactor,
	AgeingFactor,
}

var factorDisplayNames = map[string]string{
	NormalizedGaussAgeingFactor:    "Normalized Gaussian",
	NormalizedWeightedAgeingFactor: "Normalized Weighted",
	GaussianAgeingFactor:           "Gaussian",
	WeightedAgeingFactor:           "Weighted",
	AgeingFactor:                   "Ageing Factor",
}

func IsRecognizedFactor(kind string) bool {
	_, ok := factorDisplayNames[kind]
	return ok
}

// DisplayName is the short label used in figure titles. Custom parameters
// fall back to FormatParameterName.
func DisplayName(kind string) string {
	if name, ok := factorDisplayNames[kind]; ok {
		return name
	}
	return FormatParameterName(kind)
}

// FormatParameterName turns a snake_case key into title case words.
func FormatParameterName(kind string) string {
	words := strings.Split(kind, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

type Channel struct {
	Name    string             `json:"name"`
	Factors map[string]float64 `json:"ageing_factors"`
}

func (c Channel) Factor(kind string) (float64, bool) {
	v, ok := c.Factors[kind]
	return v, ok
}

type Module struct {
	Identifier string    `json:"identifier"`
	Channels   []Channel `json:"channels"`
}

type Dataset struct {
	Date    string   `json:"date"`
	Modules []Module `json:"modules"`
}

type Document struct {
	Datasets []Dataset `json:"datasets"`
}

// Dataset returns the dataset recorded for date. An empty date selects the
// last dataset of the document.
func (d *Document) Dataset(date string) (*Dataset, error) {
	if len(d.Datasets) == 0 {
		return nil, fmt.Errorf("%w: document has no datasets", ErrDateNotFound)
	}
	if date == "" {
		return &d.Datasets[len(d.Datasets)-1], nil
	}
	for i := range d.Datasets {
		if d.Datasets[i].Date == date {
			return &d.Datasets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrDateNotFound, date, strings.Join(AvailableDates(d), ", "))
}

// ReferenceDate is the date of the first dataset, which ageing factors are
// normalized against.
func (d *Document) ReferenceDate() string {
	if len(d.Datasets) == 0 {
		return ""
	}
	return d.Datasets[0].Date
}
