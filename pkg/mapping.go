package mapvis

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"math"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

//go:embed mappings/*.csv
var builtinMappings embed.FS

type Position struct {
	Row float64
	Col float64
}

// Mapping associates normalized MODULE:CHANNEL keys with grid positions for
// one detector.
type Mapping struct {
	Name    string
	Source  string
	Entries map[string]Position
}

func NewMapping(name string, source string) *Mapping {
	return &Mapping{
		Name:    name,
		Source:  source,
		Entries: make(map[string]Position),
	}
}

func (m *Mapping) ChannelCount() int {
	return len(m.Entries)
}

func (m *Mapping) Position(key string) (Position, bool) {
	p, ok := m.Entries[key]
	return p, ok
}

func (m *Mapping) Keys() []string {
	return slices.Sorted(maps.Keys(m.Entries))
}

// Bounds returns the smallest and largest row and column in the mapping.
// It returns zeros for an empty mapping.
func (m *Mapping) Bounds() (minRow, maxRow, minCol, maxCol float64) {
	if len(m.Entries) == 0 {
		return 0, 0, 0, 0
	}
	minRow, minCol = math.Inf(1), math.Inf(1)
	maxRow, maxCol = math.Inf(-1), math.Inf(-1)
	for _, p := range m.Entries {
		minRow = math.Min(minRow, p.Row)
		maxRow = math.Max(maxRow, p.Row)
		minCol = math.Min(minCol, p.Col)
		maxCol = math.Max(maxCol, p.Col)
	}
	return minRow, maxRow, minCol, maxCol
}

// add stores an entry given as "PM:Channel" or as a bare channel name.
func (m *Mapping) add(pmChannel string, pos Position) {
	var key string
	if pm, channel, found := strings.Cut(pmChannel, ":"); found {
		key = NormalizeKey(pm, channel)
	} else {
		key = NormalizeKey("", pmChannel)
	}
	if _, exists := m.Entries[key]; exists {
		message := fmt.Sprintf("%s: duplicate entry for %s, keeping the last one", m.Source, key)
		logger.Warn(message, "mapping")
	}
	m.Entries[key] = pos
}

// ParseMapping reads a CSV table with the columns PM:Channel, row and col.
// Rows with unparsable positions are skipped with a warning.
func ParseMapping(name string, source string, r io.Reader) (*Mapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			err = errors.New("missing header")
		}
		return nil, &ErrParseMapping{Source: source, Err: err}
	}
	columns := make(map[string]int)
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	keyIdx, okKey := columns["pm:channel"]
	rowIdx, okRow := columns["row"]
	colIdx, okCol := columns["col"]
	if !okKey || !okRow || !okCol {
		return nil, &ErrParseMapping{Source: source, Err: fmt.Errorf("header must contain PM:Channel, row and col, got %v", header)}
	}

	mapping := NewMapping(name, source)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &ErrParseMapping{Source: source, Err: err}
		}
		if keyIdx >= len(record) {
			continue
		}
		pmChannel := strings.TrimSpace(record[keyIdx])
		if pmChannel == "" {
			continue
		}
		pos, err := parsePosition(record, rowIdx, colIdx)
		if err != nil {
			message := fmt.Sprintf("%s:%d: invalid position for %s: %v", source, line, pmChannel, err)
			logger.Warn(message, "mapping")
			continue
		}
		mapping.add(pmChannel, pos)
	}
	return mapping, nil
}

func parsePosition(record []string, rowIdx int, colIdx int) (Position, error) {
	if rowIdx >= len(record) || colIdx >= len(record) {
		return Position{}, errors.New("missing row or col")
	}
	row, err := strconv.ParseFloat(strings.TrimSpace(record[rowIdx]), 64)
	if err != nil {
		return Position{}, err
	}
	col, err := strconv.ParseFloat(strings.TrimSpace(record[colIdx]), 64)
	if err != nil {
		return Position{}, err
	}
	if math.IsNaN(row) || math.IsInf(row, 0) || math.IsNaN(col) || math.IsInf(col, 0) {
		return Position{}, errors.New("position must be finite")
	}
	return Position{Row: row, Col: col}, nil
}

func LoadMappingFile(filename string) (*Mapping, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return ParseMapping(name, filename, file)
}

// MappingSource produces every mapping it knows about, keyed by name.
type MappingSource interface {
	LoadMappings() (map[string]*Mapping, error)
}

// EmbeddedSource serves the fta and ftc tables compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) LoadMappings() (map[string]*Mapping, error) {
	return loadMappingsFS(builtinMappings, "mappings")
}

// DirectorySource loads every *.csv file of a directory. A missing
// directory yields no mappings.
type DirectorySource struct {
	Dir string
}

func (s DirectorySource) LoadMappings() (map[string]*Mapping, error) {
	if _, err := os.Stat(s.Dir); err != nil {
		message := fmt.Sprintf("Mappings directory %s is not available: %v", s.Dir, err)
		logger.Warn(message, "mapping")
		return map[string]*Mapping{}, nil
	}
	mappings, err := loadMappingsFS(os.DirFS(s.Dir), ".")
	if err != nil {
		return nil, err
	}
	for _, m := range mappings {
		m.Source = filepath.Join(s.Dir, m.Source)
	}
	return mappings, nil
}

func loadMappingsFS(fsys fs.FS, dir string) (map[string]*Mapping, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]*Mapping, len(files))
	for _, name := range files {
		mapping, err := loadMappingFS(fsys, name)
		if err != nil {
			errMessage := fmt.Errorf("failed to load mapping file %s: %w", name, err)
			logger.Error(errMessage.Error())
			continue
		}
		mappings[mapping.Name] = mapping
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Loaded mapping: %s with %d channels", mapping.Name, mapping.ChannelCount())
			logger.Info(message, "mapping")
		}
	}
	return mappings, nil
}

func loadMappingFS(fsys fs.FS, name string) (*Mapping, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, &ErrOpenFile{Filename: name, Err: err}
	}
	defer file.Close()
	base := path.Base(name)
	return ParseMapping(strings.TrimSuffix(base, path.Ext(base)), name, file)
}

type MappingInfo struct {
	Name         string
	ChannelCount int
	Source       string
}

// Registry caches the mappings of a source. Mappings are not modified after
// loading; Refresh replaces the whole set.
type Registry struct {
	source   MappingSource
	mappings map[string]*Mapping
}

func NewRegistry(source MappingSource) (*Registry, error) {
	r := &Registry{source: source}
	if err := r.Refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Refresh() error {
	mappings, err := r.source.LoadMappings()
	if err != nil {
		return fmt.Errorf("error loading mappings: %w", err)
	}
	if len(mappings) == 0 {
		logger.Warn("No mapping files were loaded successfully", "mapping")
	}
	r.mappings = make(map[string]*Mapping, len(mappings))
	for name, m := range mappings {
		r.mappings[strings.ToLower(name)] = m
	}
	return nil
}

// Get looks a mapping up by detector name, ignoring case.
func (r *Registry) Get(name string) (*Mapping, error) {
	if m, ok := r.mappings[strings.ToLower(name)]; ok {
		return m, nil
	}
	return nil, &ErrMappingNotFound{Name: name, Available: r.Names()}
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.mappings))
	for _, m := range r.mappings {
		names = append(names, m.Name)
	}
	slices.Sort(names)
	return names
}

// Available describes the loaded mappings sorted by name.
func (r *Registry) Available() []MappingInfo {
	infos := make([]MappingInfo, 0, len(r.mappings))
	for _, m := range r.mappings {
		infos = append(infos, MappingInfo{Name: m.Name, ChannelCount: m.ChannelCount(), Source: m.Source})
	}
	slices.SortFunc(infos, func(a, b MappingInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}
