package pool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolFramesEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, PoolFrames(nil))
	assert.Nil(t, PoolFrames([][]float32{}))
}

func TestPoolFramesSingleFrameIsExact(t *testing.T) {
	t.Parallel()

	row := []float32{0.0, 0.123456, 0.9999, 1.0}
	out := PoolFrames([][]float32{row})

	require.Len(t, out, len(row))
	for i := range row {
		// Exact equality, not approximate: a single frame must bypass the
		// exp/ln round trip entirely.
		assert.Equal(t, row[i], out[i], "class %d", i)
	}

	// The result is a copy, never the caller's slice.
	out[0] = 0.5
	assert.Equal(t, float32(0.0), row[0])
}

func TestPoolFramesUniformRowsArePreserved(t *testing.T) {
	t.Parallel()

	rows := [][]float32{
		{0.1, 0.5, 0.9},
		{0.1, 0.5, 0.9},
		{0.1, 0.5, 0.9},
	}
	out := PoolFrames(rows)

	require.Len(t, out, 3)
	for i, want := range []float32{0.1, 0.5, 0.9} {
		assert.InDelta(t, want, out[i], 1e-6)
	}
}

func TestPoolFramesBiasTowardStrongestFrame(t *testing.T) {
	t.Parallel()

	rows := [][]float32{
		{0.9, 0.1},
		{0.1, 0.1},
	}
	out := PoolFrames(rows)
	require.Len(t, out, 2)

	mean := float32(0.5)
	maxVal := float32(0.9)
	assert.Greater(t, out[0], mean, "log-mean-exp must exceed the plain mean")
	assert.Less(t, out[0], maxVal, "log-mean-exp must stay below the hard maximum")
	assert.InDelta(t, 0.1, out[1], 1e-6)
}

func TestPoolFramesMatchesClosedForm(t *testing.T) {
	t.Parallel()

	rows := [][]float32{
		{0.7},
		{0.2},
		{0.4},
	}
	out := PoolFrames(rows)
	require.Len(t, out, 1)

	sum := math.Exp(5*0.7) + math.Exp(5*0.2) + math.Exp(5*0.4)
	want := math.Log(sum/3) / 5
	assert.InDelta(t, want, out[0], 1e-6)
}
