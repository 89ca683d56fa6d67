package birdnet

import "math"

// Overlap policy: user supplied overlap seconds are clamped to [0, 2.5] and
// rounded to the nearest half second before converting to samples. The
// quantization deliberately limits the number of distinct hop
// configurations; it is not a precision artifact.
const (
	maxOverlapSec  = 2.5
	overlapStepSec = 0.5
)

// QuantizeOverlap applies the overlap clamping and half-second rounding.
func QuantizeOverlap(overlapSec float64) float64 {
	q := math.Round(overlapSec*2) / 2
	if q < 0 {
		return 0
	}
	if q > maxOverlapSec {
		return maxOverlapSec
	}
	return q
}

// HopSamples returns the stride between consecutive frame starts. Always at
// least one sample so framing can never loop forever.
func HopSamples(windowSamples int, overlapSec float64, sampleRate int) int {
	overlapSamples := int(QuantizeOverlap(overlapSec) * float64(sampleRate))
	hop := windowSamples - overlapSamples
	if hop < 1 {
		hop = 1
	}
	return hop
}

// NumFrames returns the frame count for a total input length:
// max(1, ceil(max(0, total-windowSamples)/hop) + 1).
func NumFrames(total, windowSamples, hopSamples int) int {
	overhang := total - windowSamples
	if overhang < 0 {
		overhang = 0
	}
	n := (overhang+hopSamples-1)/hopSamples + 1
	if n < 1 {
		n = 1
	}
	return n
}

// FrameAudio slices the input into overlapping fixed-length frames laid out
// contiguously in one flat buffer of numFrames x windowSamples, for batched
// inference. Frame f covers [f*hop, f*hop+windowSamples); ranges running
// past the input are zero-padded on the right.
func FrameAudio(samples []float32, windowSamples int, overlapSec float64, sampleRate int) (flat []float32, numFrames, hopSamples int) {
	hopSamples = HopSamples(windowSamples, overlapSec, sampleRate)
	numFrames = NumFrames(len(samples), windowSamples, hopSamples)

	flat = make([]float32, numFrames*windowSamples)
	for f := 0; f < numFrames; f++ {
		start := f * hopSamples
		if start >= len(samples) {
			continue // fully padded frame
		}
		end := start + windowSamples
		if end > len(samples) {
			end = len(samples)
		}
		copy(flat[f*windowSamples:], samples[start:end])
	}
	return flat, numFrames, hopSamples
}
