// Package config handles configuration for pixelrunner.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/pixelrunner/pkg/device"
)

// Defaults for the terminal emulator under test.
const (
	DefaultAppPackage  = "com.ghostty.android"
	DefaultAppActivity = ".MainActivity"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Device settings
	Device string           `yaml:"device"` // Target device serial, "" = auto-detect
	App    device.AppConfig `yaml:"app"`    // App under test

	// Case selection
	CasesDir     string `yaml:"casesDir"`     // Directory of YAML case files, "" = built-in suite only
	ReferenceDir string `yaml:"referenceDir"` // Root of reference screenshots

	// Run settings
	OutputDir     string `yaml:"outputDir"`     // Directory for screenshots, diffs and reports
	Threshold     int    `yaml:"threshold"`     // Max differing pixels that still pass
	Backend       string `yaml:"backend"`       // Comparison backend: magick, native, "" = auto
	StopOnFailure bool   `yaml:"stopOnFailure"` // Stop the run on first failure

	// Run history, "" = <home>/history.db
	HistoryDB string `yaml:"historyDB"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		App: device.AppConfig{
			Package:  DefaultAppPackage,
			Activity: DefaultAppActivity,
		},
		ReferenceDir: "references",
		OutputDir:    "test_output",
	}
}

// Load loads configuration from a file. Fields absent from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, use defaults
	return Default(), nil
}
