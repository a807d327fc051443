package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	mapvis "github.com/alice-fit/mapvisualizer_go/pkg"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const previewCellWidth = 6

var (
	previewTitle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	previewBlank = lipgloss.NewStyle().Width(previewCellWidth).Align(lipgloss.Center).Foreground(lipgloss.Color("8"))
	previewEmpty = lipgloss.NewStyle().Width(previewCellWidth)
	previewNote  = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// renderPreview draws the grid as coloured terminal cells with row 0 on top.
// Mapped cells without data show "--"; unmapped positions stay empty.
func renderPreview(grid *mapvis.Grid) string {
	if len(grid.Cells) == 0 {
		return previewTitle.Render(grid.Title()) + "\nNo data available"
	}

	minRow, maxRow := math.Inf(1), math.Inf(-1)
	minCol, maxCol := math.Inf(1), math.Inf(-1)
	for _, cell := range grid.Cells {
		minRow, maxRow = math.Min(minRow, cell.Row), math.Max(maxRow, cell.Row)
		minCol, maxCol = math.Min(minCol, cell.Col), math.Max(maxCol, cell.Col)
	}
	nRows := int(math.Round(maxRow-minRow)) + 1
	nCols := int(math.Round(maxCol-minCol)) + 1

	rendered := make([][]string, nRows)
	for r := range rendered {
		rendered[r] = make([]string, nCols)
		for c := range rendered[r] {
			rendered[r][c] = previewEmpty.Render("")
		}
	}
	for _, cell := range grid.Cells {
		r := int(math.Round(cell.Row - minRow))
		c := int(math.Round(cell.Col - minCol))
		rendered[r][c] = previewCell(cell)
	}

	rows := make([]string, nRows)
	for r := range rendered {
		rows[r] = lipgloss.JoinHorizontal(lipgloss.Top, rendered[r]...)
	}

	lines := []string{previewTitle.Render(grid.Title()), lipgloss.JoinVertical(lipgloss.Left, rows...)}
	lines = append(lines, previewNote.Render(fmt.Sprintf("%s  %d/%d cells with data",
		previewLegend(grid), grid.Populated(), len(grid.Cells))))
	if len(grid.Unmapped) > 0 {
		lines = append(lines, fmt.Sprintf("Unmapped: %s", strings.Join(grid.Unmapped, ", ")))
	}
	return strings.Join(lines, "\n")
}

func previewCell(cell mapvis.Cell) string {
	if !cell.HasValue {
		return previewBlank.Render("--")
	}
	style := lipgloss.NewStyle().
		Width(previewCellWidth).
		Align(lipgloss.Center).
		Background(lipgloss.Color(hexColor(cell.Fill))).
		Foreground(lipgloss.Color(hexColor(cell.Label)))
	return style.Render(fmt.Sprintf("%.2f", cell.Value))
}

// previewLegend shows the colour scale from vmin to vmax.
func previewLegend(grid *mapvis.Grid) string {
	const steps = 10
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%.2f ", grid.Scale.Min()))
	for i := range steps {
		c := grid.Scale.Fraction(float64(i) / (steps - 1))
		b.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(hexColor(c))).Render(" "))
	}
	b.WriteString(fmt.Sprintf(" %.2f", grid.Scale.Max()))
	return b.String()
}

func hexColor(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Hex()
}
