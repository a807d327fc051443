package main

import (
	"os"
	"path/filepath"
	"testing"

	mapvis "github.com/alice-fit/mapvisualizer_go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, mapvis.DefaultConfiguration(), config)
}

func TestLoadConfigurationFormats(t *testing.T) {
	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "config.json")
	yamlFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"detector": "ftc", "vmin": 0.5, "pass": "secret"}`), 0o644))
	require.NoError(t, os.WriteFile(yamlFile, []byte("detector: ftc\nvmin: 0.5\npass: secret\ncustom_colors: [\"#000000\", \"#ffffff\"]\n"), 0o644))

	for _, filename := range []string{jsonFile, yamlFile} {
		config, err := LoadConfiguration(filename)
		require.NoError(t, err, filename)
		assert.Equal(t, "ftc", config.Detector)
		assert.Equal(t, 0.5, config.VMin)
		assert.Equal(t, "secret", config.Passwd)
		// unset fields keep their defaults
		assert.Equal(t, 1.2, config.VMax)
		assert.Equal(t, "RdYlGn", config.Colormap)
	}
}

func TestLoadConfigurationErrors(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadConfiguration(bad)
	assert.ErrorContains(t, err, "error parsing")
}
