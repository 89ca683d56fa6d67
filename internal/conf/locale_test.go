package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		locale string
		want   string
	}{
		{"empty falls back", "", DefaultFallbackLocale},
		{"plain base", "de", "de"},
		{"uppercase normalized", "DE", "de"},
		{"region variant maps to base", "en-US", "en"},
		{"brazilian portuguese maps to base", "pt-BR", "pt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeLocale(tt.locale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLocaleUnparseable(t *testing.T) {
	t.Parallel()

	_, err := NormalizeLocale("not a locale!")
	require.Error(t, err)
}

func TestNormalizeLocaleUnsupportedMatchesSupported(t *testing.T) {
	t.Parallel()

	// A valid but unshipped locale must still resolve to some supported
	// base rather than erroring out.
	got, err := NormalizeLocale("ko")
	require.NoError(t, err)

	supported := map[string]bool{}
	for _, tag := range supportedLocales {
		base, _ := tag.Base()
		supported[base.String()] = true
	}
	assert.True(t, supported[got], "resolved locale %q must be a supported one", got)
}
