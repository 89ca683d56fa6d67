package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	scores []float32
	err    error
	calls  int
}

func (s *stubScorer) ScoreLocation(lat, lon float64, week int) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func TestFusionScoresClampAndConvert(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: []float32{-0.5, 0.0, 0.42, 1.0, 1.7}}
	f := NewFusion(scorer)

	scores, err := f.Scores(60.17, 24.94, 23)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0.41999998688697815, 1, 1}, scores)
}

func TestFusionCachesByLocationAndWeek(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: []float32{0.5}}
	f := NewFusion(scorer)

	_, err := f.Scores(60.17, 24.94, 23)
	require.NoError(t, err)
	_, err = f.Scores(60.17, 24.94, 23)
	require.NoError(t, err)
	assert.Equal(t, 1, scorer.calls, "identical location and week must hit the cache")

	_, err = f.Scores(60.17, 24.94, 24)
	require.NoError(t, err)
	assert.Equal(t, 2, scorer.calls, "a different week is a different key")

	_, err = f.Scores(61.0, 24.94, 24)
	require.NoError(t, err)
	assert.Equal(t, 3, scorer.calls, "a different location is a different key")
}

func TestFusionNearbyLocationsShareKey(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: []float32{0.5}}
	f := NewFusion(scorer)

	_, err := f.Scores(60.170001, 24.940001, 23)
	require.NoError(t, err)
	_, err = f.Scores(60.170002, 24.940002, 23)
	require.NoError(t, err)
	assert.Equal(t, 1, scorer.calls, "sub-meter jitter must not defeat the cache")
}

func TestFusionReturnsDefensiveCopies(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: []float32{0.5, 0.5}}
	f := NewFusion(scorer)

	first, err := f.Scores(1, 2, 3)
	require.NoError(t, err)
	first[0] = 99

	second, err := f.Scores(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.5, second[0], "caller mutation must not poison the cache")
}

func TestFusionErrorPropagates(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{err: errors.New("model gone")}
	f := NewFusion(scorer)

	_, err := f.Scores(1, 2, 3)
	require.Error(t, err)
	assert.Equal(t, 1, scorer.calls)

	// Errors are never cached; the next call retries.
	_, err = f.Scores(1, 2, 3)
	require.Error(t, err)
	assert.Equal(t, 2, scorer.calls)
}

func TestFusionFlush(t *testing.T) {
	t.Parallel()

	scorer := &stubScorer{scores: []float32{0.5}}
	f := NewFusion(scorer)

	_, err := f.Scores(1, 2, 3)
	require.NoError(t, err)
	f.Flush()
	_, err = f.Scores(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, scorer.calls)
}
