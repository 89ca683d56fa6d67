package birdnet

import "math"

const (
	sensitivityEps  = 1e-7
	sensitivityBias = 5.0
)

// ApplySensitivity shifts a probability's decision logit by
// (sensitivity-1)*5 and maps it back through the sigmoid. Sensitivity 1.0
// is a strict no-op: the value passes through untouched, without even the
// epsilon clip, so neutral settings keep bit-exact model output.
func ApplySensitivity(p float32, sensitivity float64) float32 {
	if sensitivity == 1.0 {
		return p
	}
	v := float64(p)
	if v < sensitivityEps {
		v = sensitivityEps
	} else if v > 1-sensitivityEps {
		v = 1 - sensitivityEps
	}
	l := math.Log(v/(1-v)) + (sensitivity-1.0)*sensitivityBias
	return float32(1 / (1 + math.Exp(-l)))
}

// ApplySensitivityRows applies the transform in place to every value of a
// per-frame prediction matrix.
func ApplySensitivityRows(preds [][]float32, sensitivity float64) {
	if sensitivity == 1.0 {
		return
	}
	for _, row := range preds {
		for i, p := range row {
			row[i] = ApplySensitivity(p, sensitivity)
		}
	}
}
