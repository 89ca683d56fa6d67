// Package conf handles application configuration: the Settings struct, viper
// based config file loading with defaults, and locale normalization for
// species label files.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/aviaudio/perch/internal/errors"
)

// BirdNETConfig holds the model and inference settings.
type BirdNETConfig struct {
	Sensitivity float64 `mapstructure:"sensitivity"` // detection sensitivity, 0.5 to 1.5, 1.0 is neutral
	Overlap     float64 `mapstructure:"overlap"`     // window overlap in seconds, quantized to 0.5 s steps
	Threads     int     `mapstructure:"threads"`     // interpreter threads, 0 = all cores
	Latitude    float64 `mapstructure:"latitude"`
	Longitude   float64 `mapstructure:"longitude"`
	Locale      string  `mapstructure:"locale"`    // UI locale for common names
	ModelPath   string  `mapstructure:"modelpath"` // path to acoustic model file
	LabelPath   string  `mapstructure:"labelpath"` // directory containing labels_<locale>.txt files
	RangeFilter RangeFilterConfig `mapstructure:"rangefilter"`
}

// RangeFilterConfig holds the geographic prior model settings.
type RangeFilterConfig struct {
	ModelPath string  `mapstructure:"modelpath"` // path to geo model file, empty disables geo fusion
	Threshold float64 `mapstructure:"threshold"` // minimum occurrence score for the species list
}

// RealtimeConfig holds the capture and scheduler settings.
type RealtimeConfig struct {
	Interval      int     `mapstructure:"interval"`      // inference dispatch interval in milliseconds
	Gain          float64 `mapstructure:"gain"`          // gain applied at snapshot time
	TemporalDepth int     `mapstructure:"temporaldepth"` // number of cycles in temporal pooling
	MinConfidence float64 `mapstructure:"minconfidence"` // minimum pooled confidence to emit a class
	Audio         AudioConfig     `mapstructure:"audio"`
	Telemetry     TelemetryConfig `mapstructure:"telemetry"`
}

// AudioConfig selects the capture device.
type AudioConfig struct {
	Source string `mapstructure:"source"` // device name or id substring, "sysdefault" for default
}

// TelemetryConfig controls the prometheus endpoint.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Settings is the root configuration object.
type Settings struct {
	Debug    bool           `mapstructure:"debug"`
	BirdNET  BirdNETConfig  `mapstructure:"birdnet"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
}

// Load reads configuration from the first config file found in the standard
// paths, merged over defaults and environment variables (PERCH_ prefix).
// A missing config file is not an error; defaults apply.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths() {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("PERCH")
	// Nested keys use dots, env vars use underscores:
	// birdnet.sensitivity <- PERCH_BIRDNET_SENSITIVITY.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_file", v.ConfigFileUsed()).
				Build()
		}
		// First run: seed a default config so the user has something to
		// edit. Failure to write it is not fatal; defaults still apply.
		if path, werr := WriteDefaultConfig(); werr == nil {
			v.SetConfigFile(path)
			_ = v.ReadInConfig()
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	locale, err := NormalizeLocale(settings.BirdNET.Locale)
	if err != nil {
		return nil, err
	}
	settings.BirdNET.Locale = locale

	return settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("birdnet.sensitivity", DefaultSensitivity)
	v.SetDefault("birdnet.overlap", DefaultOverlapSec)
	v.SetDefault("birdnet.threads", 0)
	v.SetDefault("birdnet.latitude", 0.0)
	v.SetDefault("birdnet.longitude", 0.0)
	v.SetDefault("birdnet.locale", DefaultFallbackLocale)
	v.SetDefault("birdnet.modelpath", "")
	v.SetDefault("birdnet.labelpath", "")
	v.SetDefault("birdnet.rangefilter.modelpath", "")
	v.SetDefault("birdnet.rangefilter.threshold", 0.01)
	v.SetDefault("realtime.interval", DefaultIntervalMs)
	v.SetDefault("realtime.gain", DefaultGain)
	v.SetDefault("realtime.temporaldepth", DefaultTemporalDepth)
	v.SetDefault("realtime.minconfidence", DefaultMinConfidence)
	v.SetDefault("realtime.audio.source", "sysdefault")
	v.SetDefault("realtime.telemetry.enabled", false)
	v.SetDefault("realtime.telemetry.listen", "localhost:8090")
}

// configPaths returns the directories searched for config.yaml, in order.
func configPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "perch"))
	}
	return paths
}

// Validate checks value ranges that would otherwise surface as confusing
// runtime behavior.
func (s *Settings) Validate() error {
	if s.BirdNET.Sensitivity < 0.5 || s.BirdNET.Sensitivity > 1.5 {
		return errors.Newf("sensitivity %.2f out of range [0.5, 1.5]", s.BirdNET.Sensitivity).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Realtime.Interval <= 0 {
		return errors.Newf("interval %d ms must be positive", s.Realtime.Interval).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Realtime.TemporalDepth < 1 {
		return errors.Newf("temporaldepth %d must be at least 1", s.Realtime.TemporalDepth).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if lat := s.BirdNET.Latitude; lat < -90 || lat > 90 {
		return errors.Newf("latitude %.4f out of range", lat).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if lon := s.BirdNET.Longitude; lon < -180 || lon > 180 {
		return errors.Newf("longitude %.4f out of range", lon).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// HasLocation reports whether a usable location has been configured. The
// 0,0 null island default means "not set".
func (s *Settings) HasLocation() bool {
	return s.BirdNET.Latitude != 0 || s.BirdNET.Longitude != 0
}

// String renders a short human readable summary for startup logging.
func (s *Settings) String() string {
	return fmt.Sprintf("sensitivity=%.1f overlap=%.1fs interval=%dms locale=%s",
		s.BirdNET.Sensitivity, s.BirdNET.Overlap, s.Realtime.Interval, s.BirdNET.Locale)
}
