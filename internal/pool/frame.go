// Package pool implements the two aggregation stages of the detection
// pipeline: frame pooling collapses the per-frame confidences of a single
// inference cycle, temporal pooling smooths frame-pooled results across the
// last few cycles.
package pool

import "math"

// frameAlpha is the sharpness of the frame-level log-mean-exp. Higher values
// weight the strongest frame more, approaching a hard maximum.
const frameAlpha = 5.0

// PoolFrames collapses per-frame per-class probabilities into one per-class
// row using log-mean-exp over the probability values:
//
//	pooled[i] = ln(mean_f exp(alpha * p[f][i])) / alpha
//
// The result is rendered directly as confidence without re-normalization, so
// values can slightly exceed 1 or fall below the plain mean. A single frame
// is returned unchanged; the exp/ln round trip must not introduce drift.
func PoolFrames(preds [][]float32) []float32 {
	if len(preds) == 0 {
		return nil
	}
	if len(preds) == 1 {
		out := make([]float32, len(preds[0]))
		copy(out, preds[0])
		return out
	}

	numClasses := len(preds[0])
	out := make([]float32, numClasses)
	n := float64(len(preds))
	for i := 0; i < numClasses; i++ {
		var sum float64
		for f := range preds {
			sum += math.Exp(frameAlpha * float64(preds[f][i]))
		}
		out[i] = float32(math.Log(sum/n) / frameAlpha)
	}
	return out
}
