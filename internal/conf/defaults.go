package conf

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aviaudio/perch/internal/errors"
)

// defaultConfig mirrors the viper defaults in a marshalable shape so a
// commented starting-point config can be written on first run.
type defaultConfig struct {
	Debug   bool `yaml:"debug"`
	BirdNET struct {
		Sensitivity float64 `yaml:"sensitivity"`
		Overlap     float64 `yaml:"overlap"`
		Threads     int     `yaml:"threads"`
		Latitude    float64 `yaml:"latitude"`
		Longitude   float64 `yaml:"longitude"`
		Locale      string  `yaml:"locale"`
		ModelPath   string  `yaml:"modelpath"`
		LabelPath   string  `yaml:"labelpath"`
		RangeFilter struct {
			ModelPath string  `yaml:"modelpath"`
			Threshold float64 `yaml:"threshold"`
		} `yaml:"rangefilter"`
	} `yaml:"birdnet"`
	Realtime struct {
		Interval      int     `yaml:"interval"`
		Gain          float64 `yaml:"gain"`
		TemporalDepth int     `yaml:"temporaldepth"`
		MinConfidence float64 `yaml:"minconfidence"`
		Audio         struct {
			Source string `yaml:"source"`
		} `yaml:"audio"`
		Telemetry struct {
			Enabled bool   `yaml:"enabled"`
			Listen  string `yaml:"listen"`
		} `yaml:"telemetry"`
	} `yaml:"realtime"`
}

// WriteDefaultConfig writes a config file with default values to the user
// config directory, unless one already exists. Returns the path written, or
// the existing path.
func WriteDefaultConfig() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Build()
	}
	dir := filepath.Join(home, ".config", "perch")
	path := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}

	cfg := defaultConfig{}
	cfg.BirdNET.Sensitivity = DefaultSensitivity
	cfg.BirdNET.Overlap = DefaultOverlapSec
	cfg.BirdNET.Locale = DefaultFallbackLocale
	cfg.BirdNET.RangeFilter.Threshold = 0.01
	cfg.Realtime.Interval = DefaultIntervalMs
	cfg.Realtime.Gain = DefaultGain
	cfg.Realtime.TemporalDepth = DefaultTemporalDepth
	cfg.Realtime.MinConfidence = DefaultMinConfidence
	cfg.Realtime.Audio.Source = "sysdefault"
	cfg.Realtime.Telemetry.Listen = "localhost:8090"

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return path, nil
}
