// Ring buffer holding the most recent window of mono PCM samples. The
// capture device callback writes continuously; the scheduler takes ordered
// snapshots. Both run on different OS threads, so access is mutex guarded.
package audio

import (
	"sync"

	"github.com/aviaudio/perch/internal/errors"
)

// RingBuffer is a fixed-capacity circular store of float32 samples. Old
// samples are overwritten, never explicitly removed; the buffer always holds
// the most recent `capacity` samples once it has wrapped at least once.
type RingBuffer struct {
	data       []float32
	writeIndex int
	capacity   int
	mu         sync.Mutex
}

// NewRingBuffer allocates a ring buffer for capacity samples.
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, errors.Newf("invalid ring buffer capacity: %d", capacity).
			Component("audio").
			Category(errors.CategoryValidation).
			Build()
	}
	return &RingBuffer{
		data:     make([]float32, capacity),
		capacity: capacity,
	}, nil
}

// Capacity returns the fixed sample capacity.
func (rb *RingBuffer) Capacity() int { return rb.capacity }

// Write appends samples, advancing the write cursor modulo capacity. It
// never blocks beyond the mutex and never fails; excess history is simply
// overwritten. Safe to call from the audio device callback.
func (rb *RingBuffer) Write(samples []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for len(samples) > 0 {
		n := copy(rb.data[rb.writeIndex:], samples)
		rb.writeIndex = (rb.writeIndex + n) % rb.capacity
		samples = samples[n:]
	}
}

// WriteSample appends a single sample.
func (rb *RingBuffer) WriteSample(sample float32) {
	rb.mu.Lock()
	rb.data[rb.writeIndex] = sample
	rb.writeIndex = (rb.writeIndex + 1) % rb.capacity
	rb.mu.Unlock()
}

// Snapshot returns a fresh chronologically ordered copy of the full window,
// with gain applied and samples hard-clipped to [-1, 1]. The ring itself is
// not mutated, and the returned buffer is owned by the caller; it is never
// reused, so it can cross the worker boundary without sharing state.
func (rb *RingBuffer) Snapshot(gain float64) []float32 {
	out := make([]float32, rb.capacity)

	rb.mu.Lock()
	// Oldest sample sits at the write cursor once the buffer has wrapped.
	n := copy(out, rb.data[rb.writeIndex:])
	copy(out[n:], rb.data[:rb.writeIndex])
	rb.mu.Unlock()

	g := float32(gain)
	for i, s := range out {
		s *= g
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = s
	}
	return out
}
