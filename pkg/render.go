package mapvis

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

const (
	DefaultFrameDPI = 100
	colorBarShare   = 0.12
	colorBarStrips  = 128
)

var (
	cellOutline  = draw.LineStyle{Color: color.Black, Width: vg.Points(1)}
	blankOutline = draw.LineStyle{Color: color.Gray{Y: 190}, Width: vg.Points(0.5)}
)

// Figure lays a grid out as the cell map on the left and a vertical colour
// bar on the right.
type Figure struct {
	Grid   *Grid
	Width  vg.Length
	Height vg.Length
}

func NewFigure(grid *Grid) *Figure {
	return &Figure{Grid: grid, Width: 12 * vg.Inch, Height: 10 * vg.Inch}
}

func (f *Figure) Draw(dc draw.Canvas) {
	dc.FillPolygon(color.White, rectangle(dc.Min.X, dc.Max.Y, dc.Max.X-dc.Min.X, dc.Max.Y-dc.Min.Y))

	width := dc.Max.X - dc.Min.X
	height := dc.Max.Y - dc.Min.Y
	if len(f.Grid.Cells) == 0 {
		f.cellPlot().Draw(dc)
		return
	}
	barWidth := width * colorBarShare
	f.cellPlot().Draw(draw.Crop(dc, 0, -barWidth, 0, 0))
	f.colorBarPlot().Draw(draw.Crop(dc, width-barWidth, 0, height*0.08, -height*0.12))
}

func (f *Figure) cellPlot() *plot.Plot {
	p := plot.New()
	p.Title.Text = f.Grid.Title()
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.HideAxes()
	p.Add(&cellPlotter{grid: f.Grid})
	return p
}

func (f *Figure) colorBarPlot() *plot.Plot {
	p := plot.New()
	p.HideX()
	p.Y.Label.Text = DisplayName(f.Grid.FactorType)
	p.Add(&colorBarPlotter{scale: f.Grid.Scale, strips: colorBarStrips})
	return p
}

func checkDPI(dpi int) error {
	if dpi <= 0 {
		return &ErrInvalidOptions{Field: "dpi", Reason: fmt.Sprintf("must be positive, got %d", dpi)}
	}
	return nil
}

// Image rasterizes the figure at the given resolution.
func (f *Figure) Image(dpi int) (image.Image, error) {
	if err := checkDPI(dpi); err != nil {
		return nil, err
	}
	c := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))
	f.Draw(draw.New(c))
	return c.Image(), nil
}

// WriteTo encodes the figure as png, jpg, jpeg, tif, tiff, svg or pdf.
// dpi only applies to raster formats.
func (f *Figure) WriteTo(w io.Writer, format string, dpi int) error {
	var out io.WriterTo
	switch format {
	case "png", "jpg", "jpeg", "tif", "tiff":
		if err := checkDPI(dpi); err != nil {
			return err
		}
		c := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))
		f.Draw(draw.New(c))
		switch format {
		case "png":
			out = vgimg.PngCanvas{Canvas: c}
		case "jpg", "jpeg":
			out = vgimg.JpegCanvas{Canvas: c}
		default:
			out = vgimg.TiffCanvas{Canvas: c}
		}
	case "svg":
		c := vgsvg.New(f.Width, f.Height)
		f.Draw(draw.New(c))
		out = c
	case "pdf":
		c := vgpdf.New(f.Width, f.Height)
		f.Draw(draw.New(c))
		out = c
	default:
		return &ErrInvalidOptions{Field: "format", Reason: fmt.Sprintf("unsupported image format %q", format)}
	}
	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("error encoding %s figure: %w", format, err)
	}
	return nil
}

// OutputFormat derives the image format from the file extension. Unknown
// extensions fall back to png and the returned path gets a .png suffix.
func OutputFormat(filename string) (string, string) {
	ext := filepath.Ext(filename)
	format := strings.ToLower(strings.TrimPrefix(ext, "."))
	switch format {
	case "png", "jpg", "jpeg", "tif", "tiff", "svg", "pdf":
		return filename, format
	}
	return strings.TrimSuffix(filename, ext) + ".png", "png"
}

// Save writes the figure to filename and returns the path actually used.
func (f *Figure) Save(filename string, dpi int) (string, error) {
	path, format := OutputFormat(filename)
	if path != filename {
		message := fmt.Sprintf("Unsupported extension for %s, saving as %s", filename, path)
		logger.Warn(message, "render")
	}
	file, err := os.Create(path)
	if err != nil {
		return "", &ErrOpenFile{Filename: path, Err: err}
	}
	if err := f.WriteTo(file, format, dpi); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", path, err)
	}
	return path, nil
}

// colorBarPlotter draws the scale as flat strips between its bounds. The
// vector backends only get filled polygons, never an embedded image.
type colorBarPlotter struct {
	scale  *ColorScale
	strips int
}

func (cb *colorBarPlotter) DataRange() (xmin, xmax, ymin, ymax float64) {
	return 0, 1, cb.scale.Min(), cb.scale.Max()
}

func (cb *colorBarPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	left, right := trX(0), trX(1)
	lo, hi := cb.scale.Min(), cb.scale.Max()
	step := (hi - lo) / float64(cb.strips)
	for i := range cb.strips {
		bottom := trY(lo + float64(i)*step)
		top := trY(lo + float64(i+1)*step)
		fill := cb.scale.Fraction((float64(i) + 0.5) / float64(cb.strips))
		// strips overlap by a hair so no seams show between them
		c.FillPolygon(fill, rectangle(left, top+vg.Points(0.25), right-left, top-bottom+vg.Points(0.25)))
	}
	frame := rectangle(left, trY(hi), right-left, trY(hi)-trY(lo))
	c.StrokeLines(cellOutline, append(frame, frame[0]))
}

type cellPlotter struct {
	grid *Grid
}

func (cp *cellPlotter) DataRange() (xmin, xmax, ymin, ymax float64) {
	return 0, 1, 0, 1
}

// Plot draws square cells with row 0 on top, centred in the data area.
func (cp *cellPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	width := c.Max.X - c.Min.X
	height := c.Max.Y - c.Min.Y
	cells := cp.grid.Cells
	if len(cells) == 0 {
		sty := labelStyle(plt, vg.Points(12), color.Black)
		c.FillText(sty, vg.Point{X: c.Min.X + width/2, Y: c.Min.Y + height/2}, "No data available")
		return
	}

	minRow, maxRow := math.Inf(1), math.Inf(-1)
	minCol, maxCol := math.Inf(1), math.Inf(-1)
	for _, cell := range cells {
		minRow, maxRow = math.Min(minRow, cell.Row), math.Max(maxRow, cell.Row)
		minCol, maxCol = math.Min(minCol, cell.Col), math.Max(maxCol, cell.Col)
	}
	nRows := vg.Length(maxRow - minRow + 1)
	nCols := vg.Length(maxCol - minCol + 1)
	size := min(width/nCols, height/nRows)
	left0 := c.Min.X + (width-size*nCols)/2
	top0 := c.Max.Y - (height-size*nRows)/2

	for _, cell := range cells {
		left := left0 + vg.Length(cell.Col-minCol)*size
		top := top0 - vg.Length(cell.Row-minRow)*size
		pts := rectangle(left, top, size, size)
		if !cell.HasValue {
			c.StrokeLines(blankOutline, append(pts, pts[0]))
			continue
		}
		c.FillPolygon(cell.Fill, pts)
		c.StrokeLines(cellOutline, append(pts, pts[0]))
		sty := labelStyle(plt, vg.Points(8), cell.Label)
		c.FillText(sty, vg.Point{X: left + size/2, Y: top - size/2}, fmt.Sprintf("%.2f", cell.Value))
	}
}

func labelStyle(plt *plot.Plot, size vg.Length, clr color.Color) text.Style {
	sty := plt.Title.TextStyle
	sty.Font.Size = size
	sty.Color = clr
	sty.XAlign = text.XCenter
	sty.YAlign = text.YCenter
	return sty
}

// rectangle returns the corners of a box given its top-left corner.
func rectangle(left, top, width, height vg.Length) []vg.Point {
	return []vg.Point{
		{X: left, Y: top},
		{X: left + width, Y: top},
		{X: left + width, Y: top - height},
		{X: left, Y: top - height},
	}
}
