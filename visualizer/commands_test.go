package main

import (
	"bytes"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	mapvis "github.com/alice-fit/mapvisualizer_go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		mapvis.SetConfiguration(mapvis.DefaultConfiguration())
		mapvis.SetLogger(nil)
	})
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func generateInput(t *testing.T, dir string, detector string) string {
	t.Helper()
	input := filepath.Join(dir, detector+".json")
	_, err := runCommand(t, "generate", "-o", input, "-d", detector, "--datasets", "2", "--modules", "2", "--channels", "12", "--seed", "42")
	require.NoError(t, err)
	return input
}

func TestGenerateAndValidate(t *testing.T) {
	input := generateInput(t, t.TempDir(), "fta")

	out, err := runCommand(t, "validate", "-i", input, "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (0 warnings)")
	assert.Contains(t, out, "Datasets: 2")
	assert.Contains(t, out, "Modules: A0, A1 (2 unique)")
	assert.Contains(t, out, "Channels: 48")
}

func TestGenerateToStdoutIsSeeded(t *testing.T) {
	first, err := runCommand(t, "generate", "--seed", "3", "--datasets", "1", "--modules", "1", "--channels", "2")
	require.NoError(t, err)
	second, err := runCommand(t, "generate", "--seed", "3", "--datasets", "1", "--modules", "1", "--channels", "2")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, `"identifier": "A0"`)
}

func TestValidateReportsIssues(t *testing.T) {
	input := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"datasets": [{"date": "2024-01-01"}]}`), 0o644))

	out, err := runCommand(t, "validate", "-i", input)
	var validationErr *mapvis.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, out, "error: datasets[0].modules: missing required field")
}

func TestRenderImage(t *testing.T) {
	dir := t.TempDir()
	input := generateInput(t, dir, "fta")
	output := filepath.Join(dir, "map.png")

	out, err := runCommand(t, "render", "-i", input, "-o", output, "-d", "fta", "--dpi", "20", "--colormap", "Spectral_r")
	require.NoError(t, err)
	assert.Contains(t, out, "Visualization saved to: "+output)
	assert.Contains(t, out, "(24/96 cells with data)")
	assert.FileExists(t, output)
}

func TestRenderGIFCommand(t *testing.T) {
	dir := t.TempDir()
	input := generateInput(t, dir, "ftc")
	output := filepath.Join(dir, "map.gif")

	out, err := runCommand(t, "render", "-i", input, "-o", output, "-d", "ftc", "--gif", "--dpi", "10", "--gif-duration", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 frames)")

	file, err := os.Open(output)
	require.NoError(t, err)
	defer file.Close()
	decoded, err := gif.DecodeAll(file)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 20}, decoded.Delay)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	input := generateInput(t, dir, "fta")
	output := filepath.Join(dir, "map.png")

	_, err := runCommand(t, "render", "-i", input, "-o", output, "-d", "ftx")
	var notFound *mapvis.ErrMappingNotFound
	assert.ErrorAs(t, err, &notFound)

	_, err = runCommand(t, "render", "-i", input, "-o", output, "-d", "fta", "--date", "1999-01-01")
	assert.ErrorIs(t, err, mapvis.ErrDateNotFound)

	_, err = runCommand(t, "render", "-i", input, "-d", "fta")
	assert.ErrorContains(t, err, "output file is required")

	var invalid *mapvis.ErrInvalidOptions
	_, err = runCommand(t, "render", "-i", input, "-o", output, "-d", "fta", "--dpi", "0")
	assert.ErrorAs(t, err, &invalid)
	_, err = runCommand(t, "render", "-i", input, "-o", filepath.Join(dir, "map.gif"), "-d", "fta", "--gif", "--dpi", "-3")
	assert.ErrorAs(t, err, &invalid)
}

func TestRenderPDF(t *testing.T) {
	dir := t.TempDir()
	input := generateInput(t, dir, "fta")
	output := filepath.Join(dir, "map.pdf")

	out, err := runCommand(t, "render", "-i", input, "-o", output, "-d", "fta")
	require.NoError(t, err)
	assert.Contains(t, out, "Visualization saved to: "+output)
	assert.FileExists(t, output)
}

func TestRenderUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := generateInput(t, dir, "fta")
	output := filepath.Join(dir, "from-config.svg")
	config := filepath.Join(dir, "config.yaml")
	content := "file_in: " + input + "\nfile_out: " + output + "\ndetector: fta\ncolormap: custom\ncustom_colors: [\"#ff0000\", \"#00ff00\"]\n"
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))

	_, err := runCommand(t, "--config", config, "render")
	require.NoError(t, err)
	assert.FileExists(t, output)
}

func TestMappingsCommand(t *testing.T) {
	out, err := runCommand(t, "mappings")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `fta\s+96\s+mappings/fta.csv`, out)
	assert.Regexp(t, `ftc\s+112\s+mappings/ftc.csv`, out)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ftx.csv"), []byte("PM:Channel,row,col\nX0:CH01,0,0\n"), 0o644))
	out, err = runCommand(t, "--mappings-dir", dir, "mappings")
	require.NoError(t, err)
	assert.Regexp(t, `ftx\s+1\s+`, out)
	assert.NotContains(t, out, "fta")
}

func TestPreviewCommand(t *testing.T) {
	input := generateInput(t, t.TempDir(), "fta")

	out, err := runCommand(t, "preview", "-i", input, "-d", "fta", "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Normalized Gaussian - FTA")
	assert.Contains(t, out, "24/96 cells with data")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	input := generateInput(t, dir, "fta")
	output := filepath.Join(dir, "grid.h5")

	out, err := runCommand(t, "export", "-i", input, "-o", output, "-d", "fta", "--factor", mapvis.GaussianAgeingFactor)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 frames)")

	dates, err := mapvis.ReadHDF5Dates(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-31"}, dates)
}
