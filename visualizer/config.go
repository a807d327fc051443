package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapvis "github.com/alice-fit/mapvisualizer_go/pkg"
	"gopkg.in/yaml.v3"
)

// LoadConfiguration reads a JSON or YAML file on top of the default values.
// An empty filename returns the defaults.
func LoadConfiguration(filename string) (mapvis.Configuration, error) {
	config := mapvis.DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	return config, nil
}

func printConfiguration(config mapvis.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Detector: %s", config.Detector), "config")
	logger.Info(fmt.Sprintf("Date: %s", config.Date), "config")
	logger.Info(fmt.Sprintf("Factor type: %s", config.FactorType), "config")
	logger.Info(fmt.Sprintf("Colormap: %s", config.Colormap), "config")
	if len(config.CustomColors) > 0 {
		logger.Info(fmt.Sprintf("Custom colors: %s", strings.Join(config.CustomColors, ", ")), "config")
	}
	logger.Info(fmt.Sprintf("Range: [%g, %g]", config.VMin, config.VMax), "config")
	logger.Info(fmt.Sprintf("DPI: %d", config.DPI), "config")
	logger.Info(fmt.Sprintf("GIF: %t (duration %d ms, loop %d)", config.GIF, config.GIFDuration, config.GIFLoop), "config")
	logger.Info(fmt.Sprintf("Mappings dir: %s", config.MappingsDir), "config")
	logger.Info(fmt.Sprintf("Use DB: %t", config.UseDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
