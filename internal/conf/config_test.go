package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.BirdNET.Sensitivity = DefaultSensitivity
	s.BirdNET.Locale = DefaultFallbackLocale
	s.Realtime.Interval = DefaultIntervalMs
	s.Realtime.TemporalDepth = DefaultTemporalDepth
	s.Realtime.MinConfidence = DefaultMinConfidence
	return s
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
		valid  bool
	}{
		{"defaults are valid", func(s *Settings) {}, true},
		{"sensitivity low", func(s *Settings) { s.BirdNET.Sensitivity = 0.4 }, false},
		{"sensitivity high", func(s *Settings) { s.BirdNET.Sensitivity = 1.6 }, false},
		{"sensitivity boundary low", func(s *Settings) { s.BirdNET.Sensitivity = 0.5 }, true},
		{"sensitivity boundary high", func(s *Settings) { s.BirdNET.Sensitivity = 1.5 }, true},
		{"zero interval", func(s *Settings) { s.Realtime.Interval = 0 }, false},
		{"negative interval", func(s *Settings) { s.Realtime.Interval = -100 }, false},
		{"zero temporal depth", func(s *Settings) { s.Realtime.TemporalDepth = 0 }, false},
		{"latitude out of range", func(s *Settings) { s.BirdNET.Latitude = 91 }, false},
		{"longitude out of range", func(s *Settings) { s.BirdNET.Longitude = -181 }, false},
		{"valid location", func(s *Settings) { s.BirdNET.Latitude = 60.17; s.BirdNET.Longitude = 24.94 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := s.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	// No t.Parallel: t.Setenv mutates process state.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PERCH_BIRDNET_SENSITIVITY", "1.4")
	t.Setenv("PERCH_BIRDNET_LOCALE", "de")
	t.Setenv("PERCH_REALTIME_INTERVAL", "250")

	settings, err := Load()
	require.NoError(t, err)

	// Dotted keys map to underscore env vars.
	assert.Equal(t, 1.4, settings.BirdNET.Sensitivity)
	assert.Equal(t, "de", settings.BirdNET.Locale)
	assert.Equal(t, 250, settings.Realtime.Interval)

	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultMinConfidence, settings.Realtime.MinConfidence)
}

func TestLoadEnvOverridesBeatConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PERCH_REALTIME_GAIN", "2.5")

	// First Load seeds the default config file under $HOME; the env value
	// must still win over the file on a subsequent load.
	_, err := Load()
	require.NoError(t, err)

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2.5, settings.Realtime.Gain)
}

func TestHasLocation(t *testing.T) {
	t.Parallel()

	s := validSettings()
	assert.False(t, s.HasLocation(), "null island default means unset")

	s.BirdNET.Latitude = 60.17
	assert.True(t, s.HasLocation())

	s.BirdNET.Latitude = 0
	s.BirdNET.Longitude = 24.94
	assert.True(t, s.HasLocation())
}
