package mapvis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/hdf5"
)

// HDF5 layout:
//
//	/Grid/frames       float64 [frame][row][col], NaN where a cell has no value
//	/Grid/dates        frameHDF5 per frame
//	/Grid/info         gridInfoHDF5, a single row
//	/Mapping/channels  channelMappingHDF5 per mapped channel

type frameHDF5 struct {
	date      [STRLEN]byte
	populated int32
}

type gridInfoHDF5 struct {
	detector [STRLEN]byte
	factor   [STRLEN]byte
	vmin     float64
	vmax     float64
	minRow   float64
	minCol   float64
}

type channelMappingHDF5 struct {
	key [STRLEN]byte
	row int32
	col int32
}

const (
	STRLEN           = 40
	compressionLevel = 4
)

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func convertFromHdf5String(b [STRLEN]byte) string {
	return strings.TrimRight(string(b[:]), "\x00")
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func create3dArray(group *hdf5.Group, name string, nRows int, nCols int) (*hdf5.Dataset, error) {
	dims := []uint{0, uint(nRows), uint(nCols)}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims), uint(nRows), uint(nCols)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()
	if err := plist.SetChunk([]uint{1, uint(nRows), uint(nCols)}); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if err := plist.SetDeflate(compressionLevel); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, hdf5.T_NATIVE_DOUBLE, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

// writeTable stores rows as a fixed size compound table.
func writeTable[T any](group *hdf5.Group, name string, rows []T) error {
	var zero T
	dtype, err := hdf5.NewDatatypeFromValue(zero)
	if err != nil {
		return &ErrCreateTable{TableName: name, Err: err}
	}
	defer dtype.Close()
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(len(rows))}, nil)
	if err != nil {
		return &ErrCreateTable{TableName: name, Err: err}
	}
	defer space.Close()
	dset, err := group.CreateDataset(name, dtype, space)
	if err != nil {
		return &ErrCreateTable{TableName: name, Err: err}
	}
	defer dset.Close()
	if len(rows) == 0 {
		return nil
	}
	if err := dset.Write(&rows); err != nil {
		return fmt.Errorf("error writing table %s: %w", name, err)
	}
	return nil
}

func write2dFrame(dataset *hdf5.Dataset, data *[]float64, frameCounter int, nRows int, nCols int) error {
	newsize := []uint{uint(frameCounter) + 1, uint(nRows), uint(nCols)}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(frameCounter), 0, 0}
	count := []uint{1, uint(nRows), uint(nCols)}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()
	return dataset.WriteSubset(data, dataspace, filespace)
}

// GridWriter stores a sequence of grids built from one mapping as a 3-D
// array, one frame per date.
type GridWriter struct {
	File         *hdf5.File
	Filename     string
	GridGroup    *hdf5.Group
	MappingGroup *hdf5.Group
	Frames       *hdf5.Dataset
	Rows         int
	Cols         int
	FrameCounter int
	mapping      *Mapping
	minRow       float64
	minCol       float64
	dates        []frameHDF5
	info         *gridInfoHDF5
}

func NewGridWriter(filename string, mapping *Mapping) (*GridWriter, error) {
	if mapping.ChannelCount() == 0 {
		return nil, &ErrInvalidOptions{Field: "mapping", Reason: fmt.Sprintf("mapping %s has no channels", mapping.Name)}
	}
	minRow, maxRow, minCol, maxCol := mapping.Bounds()
	w := &GridWriter{
		Filename: filename,
		Rows:     int(math.Round(maxRow-minRow)) + 1,
		Cols:     int(math.Round(maxCol-minCol)) + 1,
		mapping:  mapping,
		minRow:   minRow,
		minCol:   minCol,
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Creating file: %s (%dx%d cells)", filename, w.Rows, w.Cols)
		logger.Info(message, "hdf5")
	}

	file, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	w.File = file
	if w.GridGroup, err = createGroup(file, "Grid"); err != nil {
		w.Close()
		return nil, err
	}
	if w.MappingGroup, err = createGroup(file, "Mapping"); err != nil {
		w.Close()
		return nil, err
	}
	if w.Frames, err = create3dArray(w.GridGroup, "frames", w.Rows, w.Cols); err != nil {
		w.Close()
		return nil, err
	}
	if err := writeTable(w.MappingGroup, "channels", w.channelTable()); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *GridWriter) channelTable() []channelMappingHDF5 {
	// The array MUST be allocated at creation, HDF5 reads its length
	keys := w.mapping.Keys()
	table := make([]channelMappingHDF5, len(keys))
	for i, key := range keys {
		pos := w.mapping.Entries[key]
		row, col := w.index(pos.Row, pos.Col)
		table[i] = channelMappingHDF5{key: convertToHdf5String(key), row: int32(row), col: int32(col)}
	}
	return table
}

func (w *GridWriter) index(row float64, col float64) (int, int) {
	return int(math.Round(row - w.minRow)), int(math.Round(col - w.minCol))
}

// WriteGrid appends one frame. Grids must come from the writer's mapping.
func (w *GridWriter) WriteGrid(grid *Grid) error {
	data := make([]float64, w.Rows*w.Cols)
	for i := range data {
		data[i] = math.NaN()
	}
	for _, cell := range grid.Cells {
		if !cell.HasValue {
			continue
		}
		row, col := w.index(cell.Row, cell.Col)
		if row < 0 || row >= w.Rows || col < 0 || col >= w.Cols {
			return fmt.Errorf("cell %s at (%g, %g) is outside the %dx%d frame", cell.Key, cell.Row, cell.Col, w.Rows, w.Cols)
		}
		data[row*w.Cols+col] = cell.Value
	}
	if err := write2dFrame(w.Frames, &data, w.FrameCounter, w.Rows, w.Cols); err != nil {
		return fmt.Errorf("error writing frame %d: %w", w.FrameCounter, err)
	}
	w.dates = append(w.dates, frameHDF5{date: convertToHdf5String(grid.Date), populated: int32(grid.Populated())})
	if w.info == nil {
		w.info = &gridInfoHDF5{
			detector: convertToHdf5String(w.mapping.Name),
			factor:   convertToHdf5String(grid.FactorType),
			vmin:     grid.Scale.Min(),
			vmax:     grid.Scale.Max(),
			minRow:   w.minRow,
			minCol:   w.minCol,
		}
	}
	w.FrameCounter++
	return nil
}

// Close writes the per-frame tables and releases every HDF5 handle.
func (w *GridWriter) Close() error {
	var errs []error
	if w.GridGroup != nil && w.Frames != nil {
		if err := writeTable(w.GridGroup, "dates", w.dates); err != nil {
			errs = append(errs, err)
		}
		if w.info != nil {
			if err := writeTable(w.GridGroup, "info", []gridInfoHDF5{*w.info}); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if w.Frames != nil {
		if err := w.Frames.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing frames: %w", err))
		}
	}
	if w.MappingGroup != nil {
		if err := w.MappingGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing mapping group: %w", err))
		}
	}
	if w.GridGroup != nil {
		if err := w.GridGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing grid group: %w", err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ExportHDF5 writes one frame per available date and returns the number of
// frames stored.
func ExportHDF5(filename string, doc *Document, mapping *Mapping, opts Options) (int, error) {
	grids, err := RenderFrames(doc, mapping, opts)
	if err != nil {
		return 0, err
	}
	w, err := NewGridWriter(filename, mapping)
	if err != nil {
		return 0, err
	}
	for _, grid := range grids {
		if err := w.WriteGrid(grid); err != nil {
			return 0, errors.Join(err, w.Close())
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return len(grids), nil
}

// ReadHDF5Dates returns the date of every stored frame in order.
func ReadHDF5Dates(filename string) ([]string, error) {
	file, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	dset, err := file.OpenDataset("/Grid/dates")
	if err != nil {
		return nil, fmt.Errorf("error opening dates table: %w", err)
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	rows := make([]frameHDF5, dims[0])
	if len(rows) > 0 {
		if err := dset.Read(&rows); err != nil {
			return nil, fmt.Errorf("error reading dates table: %w", err)
		}
	}
	dates := make([]string, len(rows))
	for i, r := range rows {
		dates[i] = convertFromHdf5String(r.date)
	}
	return dates, nil
}

// ReadHDF5Frame returns frame index as rows of values.
func ReadHDF5Frame(filename string, index int) ([][]float64, error) {
	file, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	dset, err := file.OpenDataset("/Grid/frames")
	if err != nil {
		return nil, fmt.Errorf("error opening frames: %w", err)
	}
	defer dset.Close()

	filespace := dset.Space()
	defer filespace.Close()
	dims, _, err := filespace.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 3 || index < 0 || uint(index) >= dims[0] {
		return nil, fmt.Errorf("frame %d out of range (frames: %v)", index, dims)
	}
	nRows, nCols := int(dims[1]), int(dims[2])
	count := []uint{1, dims[1], dims[2]}
	if err := filespace.SelectHyperslab([]uint{uint(index), 0, 0}, nil, count, nil); err != nil {
		return nil, err
	}
	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, err
	}
	defer memspace.Close()

	data := make([]float64, nRows*nCols)
	if err := dset.ReadSubset(&data, memspace, filespace); err != nil {
		return nil, fmt.Errorf("error reading frame %d: %w", index, err)
	}
	frame := make([][]float64, nRows)
	for r := range frame {
		frame[r] = data[r*nCols : (r+1)*nCols]
	}
	return frame, nil
}
