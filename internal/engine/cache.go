package engine

// inferenceCache retains the raw output of the most recent successful
// predict cycle so geo updates can replay the segment and pooled views with
// fresh geoscores without re-running the acoustic model. It is overwritten
// wholesale on every successful predict and read, never mutated, by the
// replay path.
type inferenceCache struct {
	lastPredictionList [][]float32 // sensitivity-adjusted per-frame rows; nil until first predict
	lastFramePooled    []float32   // frame-pooled log-mean-exp row for the same cycle
	lastHopSamples     int
	lastNumFrames      int
	lastWindowSamples  int
}

// valid reports whether a replay is possible.
func (c *inferenceCache) valid() bool { return c.lastPredictionList != nil }
