package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS16ToFloat32(t *testing.T) {
	t.Parallel()

	// 0, 16384 (0.5), -32768 (-1.0), 32767 (just under 1.0)
	data := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80, 0xFF, 0x7F}
	out := s16ToFloat32(data)

	require.Len(t, out, 4)
	assert.Equal(t, float32(0), out[0])
	assert.Equal(t, float32(0.5), out[1])
	assert.Equal(t, float32(-1.0), out[2])
	assert.InDelta(t, 1.0, out[3], 1e-4)
}

func TestS16ToFloat32OddTrailingByte(t *testing.T) {
	t.Parallel()

	out := s16ToFloat32([]byte{0x00, 0x40, 0xFF})
	require.Len(t, out, 1)
	assert.Equal(t, float32(0.5), out[0])
}

func TestDownmixMono(t *testing.T) {
	t.Parallel()

	stereo := []float32{0.2, 0.4, -0.6, -0.2, 1.0, 0.0}
	out := downmixMono(stereo, 2)

	require.Len(t, out, 3)
	assert.InDelta(t, 0.3, out[0], 1e-6)
	assert.InDelta(t, -0.4, out[1], 1e-6)
	assert.InDelta(t, 0.5, out[2], 1e-6)
}

func TestDownmixMonoSingleChannelPassthrough(t *testing.T) {
	t.Parallel()

	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, downmixMono(mono, 1))
}

func TestCalculateLevel(t *testing.T) {
	t.Parallel()

	t.Run("silence", func(t *testing.T) {
		t.Parallel()
		level := calculateLevel(make([]float32, 480))
		assert.Equal(t, 0, level.Level)
		assert.False(t, level.Clipping)
	})

	t.Run("full scale clips", func(t *testing.T) {
		t.Parallel()
		samples := make([]float32, 480)
		for i := range samples {
			samples[i] = 1.0
		}
		level := calculateLevel(samples)
		assert.True(t, level.Clipping)
		assert.GreaterOrEqual(t, level.Level, 95)
	})

	t.Run("louder input scores higher", func(t *testing.T) {
		t.Parallel()
		quiet := make([]float32, 480)
		loud := make([]float32, 480)
		for i := range quiet {
			quiet[i] = 0.01
			loud[i] = 0.3
		}
		assert.Greater(t, calculateLevel(loud).Level, calculateLevel(quiet).Level)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, LevelData{}, calculateLevel(nil))
	})
}
