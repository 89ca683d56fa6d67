package audio

import "math"

// LevelData carries a 0-100 scaled audio level plus a clipping flag,
// published from the capture callback for UI metering.
type LevelData struct {
	Level    int
	Clipping bool
}

// calculateLevel computes the RMS level of a chunk of float32 samples and
// scales it into a 0-100 range, flagging digital clipping.
func calculateLevel(samples []float32) LevelData {
	if len(samples) == 0 {
		return LevelData{}
	}

	var sum float64
	clipping := false
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if s >= 1.0 || s <= -1.0 {
			clipping = true
		}
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return LevelData{Clipping: clipping}
	}

	db := 20 * math.Log10(rms)

	// Map roughly -60 dBFS..-10 dBFS onto 0..100.
	scaled := (db + 60) * (100.0 / 50.0)
	if clipping {
		scaled = math.Max(scaled, 95)
	}
	if scaled < 0 {
		scaled = 0
	} else if scaled > 100 {
		scaled = 100
	}

	return LevelData{Level: int(scaled), Clipping: clipping}
}
