// Package config provides configuration loading and management for hyperspectral.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"hyperspectral/internal/models"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Root is the directory holding the "<i>_<j>" position folders
		Root string `yaml:"root"`
	} `yaml:"input"`

	// Frame geometry, must match the on-disk frames
	Frames struct {
		Height int `yaml:"height"`
		Width  int `yaml:"width"`
	} `yaml:"frames"`

	// Load parameters
	Load struct {
		// FrameType is one of calibrated, raw or temperature
		FrameType string `yaml:"frameType"`

		// FrameIndex selects <frameType>_<frameIndex>.bin in every folder
		FrameIndex int `yaml:"frameIndex"`
	} `yaml:"load"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// ExportSlices writes JPEG previews of the loaded hypercube
		ExportSlices bool `yaml:"exportSlices"`

		// SlicesDir is where previews are written
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Default frame geometry of the acquisition camera
	cfg.Frames.Height = 512
	cfg.Frames.Width = 640

	cfg.Load.FrameType = string(models.Calibrated)
	cfg.Load.FrameIndex = 0

	cfg.Output.Verbose = false
	cfg.Output.ExportSlices = false
	cfg.Output.SlicesDir = "hypercube_slices"

	return cfg
}

// Validate checks values that would otherwise only fail deep inside a load
func (c *Config) Validate() error {
	if c.Frames.Height <= 0 || c.Frames.Width <= 0 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", c.Frames.Height, c.Frames.Width)
	}
	if _, ok := models.ParseFrameType(c.Load.FrameType); !ok {
		return fmt.Errorf("unknown frame type %q", c.Load.FrameType)
	}
	if c.Load.FrameIndex < 0 {
		return fmt.Errorf("frame index must be non-negative, got %d", c.Load.FrameIndex)
	}
	if c.Output.ExportSlices && c.Output.SlicesDir == "" {
		return errors.New("slicesDir is required when exportSlices is enabled")
	}
	return nil
}

// header is written above the YAML body of saved configuration files
const header = "# hyperspectral frame loader configuration\n"

// LoadConfig loads configuration from a YAML file on top of DefaultConfig.
// A missing file yields the defaults; keys absent from the file keep
// their default values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig validates cfg and writes it to configPath, creating parent
// directories as needed. Invalid configurations are never written.
func SaveConfig(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, append([]byte(header), body...), 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile writes DefaultConfig to configPath unless a file
// already exists there.
func CreateDefaultConfigFile(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s already exists", configPath)
	}
	return SaveConfig(DefaultConfig(), configPath)
}
