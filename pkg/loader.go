package mapvis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

// ValidationReport holds the findings of Validate. Errors reject the
// document, warnings are informative.
type ValidationReport struct {
	Errors   []Issue
	Warnings []Issue
}

func (r *ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns a *ValidationError when the report holds errors.
func (r *ValidationReport) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Issues: r.Errors}
}

func (r *ValidationReport) fail(path string, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationReport) warn(path string, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func LoadFromFile(filename string) (*Document, *ValidationReport, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	doc, report, err := LoadFromBytes(data)
	if err != nil {
		return nil, report, fmt.Errorf("error loading %s: %w", filename, err)
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Loaded and validated %s: %d datasets", filename, len(doc.Datasets))
		logger.Info(message, "loader")
	}
	return doc, report, nil
}

// LoadFromBytes parses, validates and normalizes a document. Warnings are
// logged and returned in the report even when loading succeeds.
func LoadFromBytes(data []byte) (*Document, *ValidationReport, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, nil, err
	}

	report := Validate(raw)
	for _, warning := range report.Warnings {
		logger.Warn(warning.String(), "loader")
	}
	if err := report.Err(); err != nil {
		return nil, report, err
	}
	return buildDocument(raw), report, nil
}

func decodeJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ErrMalformedJSON{Offset: syntaxErr.Offset, Err: err}
		}
		return nil, &ErrMalformedJSON{Offset: decoder.InputOffset(), Err: err}
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, &ErrMalformedJSON{
			Offset: decoder.InputOffset(),
			Err:    errors.New("unexpected data after top-level value"),
		}
	}
	return raw, nil
}

// Validate checks an untyped JSON value (as produced by encoding/json with
// UseNumber) against the datasets/modules/channels/ageing_factors layout.
// Every problem is reported; validation does not stop at the first one.
func Validate(raw any) *ValidationReport {
	report := &ValidationReport{}

	root, ok := raw.(map[string]any)
	if !ok {
		report.fail("$", "document must be an object")
		return report
	}
	value, ok := root["datasets"]
	if !ok {
		report.fail("datasets", "missing required field")
		return report
	}
	datasets, ok := value.([]any)
	if !ok {
		report.fail("datasets", "must be an array")
		return report
	}
	if len(datasets) == 0 {
		report.fail("datasets", "must not be empty")
	}

	dates := make(map[string]int)
	for i, dataset := range datasets {
		path := fmt.Sprintf("datasets[%d]", i)
		date := validateDataset(report, path, dataset)
		if date == "" {
			continue
		}
		if first, seen := dates[date]; seen {
			report.warn(path+".date", "date %q already used by datasets[%d]; the first one is selected by date", date, first)
		} else {
			dates[date] = i
		}
	}
	return report
}

func validateDataset(report *ValidationReport, path string, value any) string {
	dataset, ok := value.(map[string]any)
	if !ok {
		report.fail(path, "must be an object")
		return ""
	}

	var date string
	if v, ok := dataset["date"]; !ok {
		report.fail(path+".date", "missing required field")
	} else if date, ok = v.(string); !ok {
		report.fail(path+".date", "must be a string")
	}

	modules, ok := requireArray(report, dataset, path, "modules")
	if !ok {
		return date
	}
	keys := make(map[string]string)
	for j, module := range modules {
		validateModule(report, fmt.Sprintf("%s.modules[%d]", path, j), module, keys)
	}
	return date
}

func validateModule(report *ValidationReport, path string, value any, keys map[string]string) {
	module, ok := value.(map[string]any)
	if !ok {
		report.fail(path, "must be an object")
		return
	}

	identifier, field, found := moduleIdentifier(module)
	if !found {
		report.fail(path, "must have 'identifier' or 'id' field")
	} else if _, ok := module[field].(string); !ok {
		report.fail(path+"."+field, "must be a string")
	} else if NormalizeModule(identifier) == "" {
		report.fail(path+"."+field, "must not be empty")
	}

	channels, ok := requireArray(report, module, path, "channels")
	if !ok {
		return
	}
	for k, channel := range channels {
		channelPath := fmt.Sprintf("%s.channels[%d]", path, k)
		name := validateChannel(report, channelPath, channel)
		if name == "" || identifier == "" {
			continue
		}
		key := NormalizeKey(identifier, name)
		if previous, seen := keys[key]; seen {
			report.warn(channelPath+".name", "channel %s already defined at %s; the last value wins", key, previous)
		}
		keys[key] = channelPath
	}
}

func validateChannel(report *ValidationReport, path string, value any) string {
	channel, ok := value.(map[string]any)
	if !ok {
		report.fail(path, "must be an object")
		return ""
	}

	var name string
	if v, ok := channel["name"]; !ok {
		report.fail(path+".name", "missing required field")
	} else if name, ok = v.(string); !ok {
		report.fail(path+".name", "must be a string")
	} else if strings.TrimSpace(name) == "" {
		report.fail(path+".name", "must not be empty")
	}

	v, ok := channel["ageing_factors"]
	if !ok {
		report.fail(path+".ageing_factors", "missing required field")
		return name
	}
	factors, ok := v.(map[string]any)
	if !ok {
		report.fail(path+".ageing_factors", "must be an object")
		return name
	}

	recognized := 0
	for _, kind := range slices.Sorted(maps.Keys(factors)) {
		factorPath := path + ".ageing_factors." + kind
		known := IsRecognizedFactor(kind)
		switch number := factors[kind].(type) {
		case json.Number:
			if _, err := number.Float64(); err != nil {
				report.fail(factorPath, "value %s is out of range", number)
				continue
			}
			if known {
				recognized++
			} else {
				report.warn(factorPath, "unrecognized ageing factor kind")
			}
		case nil:
			report.warn(factorPath, "null value ignored")
		default:
			report.fail(factorPath, "must be a number")
		}
	}
	if recognized == 0 {
		report.fail(path+".ageing_factors", "must contain at least one of: %s", strings.Join(AgeingFactorTypes, ", "))
	}
	return name
}

func requireArray(report *ValidationReport, object map[string]any, path string, field string) ([]any, bool) {
	fieldPath := path + "." + field
	v, ok := object[field]
	if !ok {
		report.fail(fieldPath, "missing required field")
		return nil, false
	}
	array, ok := v.([]any)
	if !ok {
		report.fail(fieldPath, "must be an array")
		return nil, false
	}
	if len(array) == 0 {
		report.fail(fieldPath, "must not be empty")
		return nil, false
	}
	return array, true
}

// moduleIdentifier prefers "identifier" and accepts the legacy "id" field.
func moduleIdentifier(module map[string]any) (string, string, bool) {
	for _, field := range []string{"identifier", "id"} {
		if v, ok := module[field]; ok {
			s, _ := v.(string)
			return s, field, true
		}
	}
	return "", "", false
}

// buildDocument converts a validated raw value into a normalized Document.
func buildDocument(raw any) *Document {
	root := raw.(map[string]any)
	datasets := root["datasets"].([]any)

	doc := &Document{Datasets: make([]Dataset, 0, len(datasets))}
	for _, d := range datasets {
		dataset := d.(map[string]any)
		modules := dataset["modules"].([]any)
		out := Dataset{
			Date:    dataset["date"].(string),
			Modules: make([]Module, 0, len(modules)),
		}
		for _, m := range modules {
			module := m.(map[string]any)
			identifier, _, _ := moduleIdentifier(module)
			channels := module["channels"].([]any)
			mod := Module{
				Identifier: NormalizeModule(identifier),
				Channels:   make([]Channel, 0, len(channels)),
			}
			for _, c := range channels {
				channel := c.(map[string]any)
				mod.Channels = append(mod.Channels, Channel{
					Name:    NormalizeChannel(channel["name"].(string)),
					Factors: numericFactors(channel["ageing_factors"].(map[string]any)),
				})
			}
			out.Modules = append(out.Modules, mod)
		}
		doc.Datasets = append(doc.Datasets, out)
	}
	return doc
}

func numericFactors(raw map[string]any) map[string]float64 {
	factors := make(map[string]float64, len(raw))
	for kind, v := range raw {
		number, ok := v.(json.Number)
		if !ok {
			continue
		}
		if f, err := number.Float64(); err == nil {
			factors[kind] = f
		}
	}
	return factors
}
