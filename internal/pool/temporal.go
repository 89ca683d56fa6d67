package pool

import (
	"math"
	"sort"
)

// temporalEps guards the logit conversion against 0 and 1 probabilities.
const temporalEps = 1e-8

// Score pairs a class index with a confidence value. Sets are sparse: a
// cycle only reports the classes it emitted, and absent classes simply do
// not contribute to that class's pooled value.
type Score struct {
	Index      int
	Confidence float64
}

// TemporalPooler keeps a sliding window of the last K frame-pooled result
// sets and pools them per class in the logit domain. It is not safe for
// concurrent use; the scheduler owns it on a single goroutine.
type TemporalPooler struct {
	depth int
	sets  [][]Score
}

// NewTemporalPooler creates a pooler retaining depth cycles. Depth below 1
// is coerced to 1.
func NewTemporalPooler(depth int) *TemporalPooler {
	if depth < 1 {
		depth = 1
	}
	return &TemporalPooler{depth: depth}
}

// Push appends the newest cycle's result set, evicting the oldest beyond
// the retained depth. The set is stored as-is; callers hand over ownership.
func (tp *TemporalPooler) Push(set []Score) {
	tp.sets = append(tp.sets, set)
	if len(tp.sets) > tp.depth {
		tp.sets = tp.sets[1:]
	}
}

// Len returns the number of retained cycles.
func (tp *TemporalPooler) Len() int { return len(tp.sets) }

// Reset drops all retained cycles, for a fresh capture session.
func (tp *TemporalPooler) Reset() { tp.sets = nil }

// Pooled returns the smoothed per-class confidences over all retained
// cycles, sorted by descending confidence. With a single retained cycle the
// values are returned exactly unchanged, so startup output carries no
// floating drift from the logit round trip.
func (tp *TemporalPooler) Pooled() []Score {
	if len(tp.sets) == 0 {
		return nil
	}
	if len(tp.sets) == 1 {
		out := make([]Score, len(tp.sets[0]))
		copy(out, tp.sets[0])
		sortByConfidence(out)
		return out
	}

	type accum struct {
		logits []float64
	}
	byClass := make(map[int]*accum)
	for _, set := range tp.sets {
		for _, s := range set {
			a := byClass[s.Index]
			if a == nil {
				a = &accum{}
				byClass[s.Index] = a
			}
			a.logits = append(a.logits, logit(clamp(s.Confidence, temporalEps, 1-temporalEps)))
		}
	}

	out := make([]Score, 0, len(byClass))
	for idx, a := range byClass {
		maxLogit := a.logits[0]
		for _, l := range a.logits[1:] {
			if l > maxLogit {
				maxLogit = l
			}
		}
		var sum float64
		for _, l := range a.logits {
			sum += math.Exp(l - maxLogit)
		}
		lme := maxLogit + math.Log(sum/float64(len(a.logits)))
		out = append(out, Score{Index: idx, Confidence: sigmoid(lme)})
	}

	sortByConfidence(out)
	return out
}

func sortByConfidence(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Confidence != scores[j].Confidence {
			return scores[i].Confidence > scores[j].Confidence
		}
		return scores[i].Index < scores[j].Index
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
