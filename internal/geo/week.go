// Package geo computes the geographic occurrence prior for every species at
// a location and week of year, with a TTL cache so repeated location updates
// within the same week do not re-run the range model.
package geo

import (
	"math"
	"time"
)

const weekMillis = 604_800_000 // 7 * 24 * 3600 * 1000

// Week returns the week-of-year number the range model expects. January 1
// is aligned back to the most recent Monday-or-earlier boundary, then 7-day
// periods since that boundary are counted and rounded:
//
//	week = round((now - alignedStartOfYear) / 604800000 ms) + 1
//
// The value is deliberately not clamped; near year boundaries it can exceed
// 52, which the model tolerates.
func Week(now time.Time) int {
	startOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	// Monday-or-earlier alignment: Monday maps to 0 days back, Sunday to 6.
	back := (int(startOfYear.Weekday()) + 6) % 7
	aligned := startOfYear.AddDate(0, 0, -back)

	elapsed := float64(now.Sub(aligned).Milliseconds())
	return int(math.Round(elapsed/weekMillis)) + 1
}
