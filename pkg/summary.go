package mapvis

import (
	"maps"
	"slices"
)

type Summary struct {
	TotalDatasets     int
	Dates             []string
	ModulesPerDataset []int
	Modules           []string
	UniqueModules     int
	TotalChannels     int
}

func Summarize(doc *Document) Summary {
	summary := Summary{
		TotalDatasets:     len(doc.Datasets),
		Dates:             make([]string, 0, len(doc.Datasets)),
		ModulesPerDataset: make([]int, 0, len(doc.Datasets)),
	}
	modules := make(map[string]struct{})
	for _, dataset := range doc.Datasets {
		summary.Dates = append(summary.Dates, dataset.Date)
		summary.ModulesPerDataset = append(summary.ModulesPerDataset, len(dataset.Modules))
		for _, module := range dataset.Modules {
			modules[module.Identifier] = struct{}{}
			summary.TotalChannels += len(module.Channels)
		}
	}
	summary.Modules = slices.Sorted(maps.Keys(modules))
	summary.UniqueModules = len(summary.Modules)
	return summary
}

// AvailableDates returns the distinct dataset dates in ascending order.
func AvailableDates(doc *Document) []string {
	dates := make([]string, 0, len(doc.Datasets))
	for _, dataset := range doc.Datasets {
		if dataset.Date != "" {
			dates = append(dates, dataset.Date)
		}
	}
	slices.Sort(dates)
	return slices.Compact(dates)
}

// AvailableParameters lists every ageing factor kind present in the
// document: recognized kinds first in canonical order, then custom ones
// sorted by name.
func AvailableParameters(doc *Document) []string {
	present := make(map[string]struct{})
	for _, dataset := range doc.Datasets {
		for _, module := range dataset.Modules {
			for _, channel := range module.Channels {
				for kind := range channel.Factors {
					present[kind] = struct{}{}
				}
			}
		}
	}

	parameters := make([]string, 0, len(present))
	for _, kind := range AgeingFactorTypes {
		if _, ok := present[kind]; ok {
			parameters = append(parameters, kind)
			delete(present, kind)
		}
	}
	return append(parameters, slices.Sorted(maps.Keys(present))...)
}
