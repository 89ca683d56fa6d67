package geo

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aviaudio/perch/internal/errors"
)

// Scorer is the opaque geographic scoring function: per-class occurrence
// scores for a location and week.
type Scorer interface {
	ScoreLocation(lat, lon float64, week int) ([]float32, error)
}

const (
	cacheTTL     = 6 * time.Hour
	cacheCleanup = time.Hour
)

// Fusion computes and caches geographic prior vectors. Score vectors are
// immutable once cached; callers receive a defensive copy they may clamp or
// write into species tables freely.
type Fusion struct {
	scorer Scorer
	cache  *gocache.Cache
}

// NewFusion wraps a scorer with a TTL cache keyed by rounded location and
// week.
func NewFusion(scorer Scorer) *Fusion {
	return &Fusion{
		scorer: scorer,
		cache:  gocache.New(cacheTTL, cacheCleanup),
	}
}

// Scores returns the per-class geoscore vector for a location and week,
// clamped to [0, 1]. Identical (rounded) locations within the same week hit
// the cache and skip the model entirely.
func (f *Fusion) Scores(lat, lon float64, week int) ([]float64, error) {
	key := cacheKey(lat, lon, week)
	if v, ok := f.cache.Get(key); ok {
		cached := v.([]float64)
		out := make([]float64, len(cached))
		copy(out, cached)
		return out, nil
	}

	raw, err := f.scorer.ScoreLocation(lat, lon, week)
	if err != nil {
		return nil, errors.Wrap(err).
			Component("geo").
			Category(errors.CategoryProcessing).
			Context("latitude", lat).
			Context("longitude", lon).
			Context("week", week).
			Build()
	}

	scores := make([]float64, len(raw))
	for i, s := range raw {
		v := float64(s)
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		scores[i] = v
	}

	f.cache.SetDefault(key, scores)
	out := make([]float64, len(scores))
	copy(out, scores)
	return out, nil
}

// Flush drops all cached score vectors, for model or label reloads.
func (f *Fusion) Flush() { f.cache.Flush() }

// cacheKey rounds the location to ~11 m so GPS jitter does not defeat the
// cache.
func cacheKey(lat, lon float64, week int) string {
	return fmt.Sprintf("%.4f|%.4f|%d", lat, lon, week)
}
