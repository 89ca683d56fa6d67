package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		// 2024-01-01 is a Monday, so the year boundary needs no alignment.
		{"monday new year", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"mid first week", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), 1},
		{"rounds up past midweek", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 2},
		{"one week in", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 2},
		// 2023-01-01 is a Sunday; the boundary aligns back to Monday
		// 2022-12-26, putting January 1 almost a full week in already.
		{"sunday new year aligns back", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 2},
		// Late December overruns 52; the value is intentionally unclamped.
		{"year end exceeds 52", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Week(tt.now))
		})
	}
}

func TestWeekAlwaysPositive(t *testing.T) {
	t.Parallel()

	for year := 2020; year <= 2030; year++ {
		for _, day := range []time.Time{
			time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, 6, 15, 0, 0, 0, 0, time.UTC),
			time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC),
		} {
			assert.GreaterOrEqual(t, Week(day), 1, "date %v", day)
		}
	}
}
