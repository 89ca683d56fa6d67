package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingBufferRejectsInvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		_, err := NewRingBuffer(capacity)
		assert.Error(t, err, "capacity %d", capacity)
	}
}

func TestRingBufferPartialFill(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(8)
	require.NoError(t, err)
	rb.Write([]float32{0.1, 0.2, 0.3})

	snap := rb.Snapshot(1.0)
	require.Len(t, snap, 8)
	// A window that has not wrapped yet leads with its zero backfill; the
	// newest samples always sit at the end.
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0.1, 0.2, 0.3}, snap)
}

func TestRingBufferWraparoundKeepsNewest(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(8)
	require.NoError(t, err)
	rb.Write([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	snap := rb.Snapshot(1.0)
	assert.Equal(t, []float32{3, 4, 5, 6, 7, 8, 9, 10}, snap)
}

func TestRingBufferWriteLargerThanCapacity(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(4)
	require.NoError(t, err)

	chunk := make([]float32, 11)
	for i := range chunk {
		chunk[i] = float32(i + 1)
	}
	rb.Write(chunk)

	assert.Equal(t, []float32{8, 9, 10, 11}, rb.Snapshot(1.0))
}

func TestRingBufferWriteSample(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(3)
	require.NoError(t, err)
	for _, s := range []float32{1, 2, 3, 4} {
		rb.WriteSample(s)
	}
	assert.Equal(t, []float32{2, 3, 4}, rb.Snapshot(1.0))
}

func TestRingBufferSnapshotDoesNotConsume(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(4)
	require.NoError(t, err)
	rb.Write([]float32{1, 2, 3, 4})

	first := rb.Snapshot(1.0)
	second := rb.Snapshot(1.0)
	assert.Equal(t, first, second, "snapshots must be repeatable reads")

	// The snapshot is a private copy; mutating it leaves the ring intact.
	first[0] = 99
	assert.Equal(t, []float32{1, 2, 3, 4}, rb.Snapshot(1.0))
}

func TestRingBufferSnapshotGainAndClipping(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(4)
	require.NoError(t, err)
	rb.Write([]float32{0.1, -0.1, 0.5, -0.5})

	snap := rb.Snapshot(4.0)
	assert.InDelta(t, 0.4, snap[0], 1e-6)
	assert.InDelta(t, -0.4, snap[1], 1e-6)
	assert.Equal(t, float32(1.0), snap[2], "gain output is hard-clipped at +1")
	assert.Equal(t, float32(-1.0), snap[3], "gain output is hard-clipped at -1")
}

func TestRingBufferContinuousStream(t *testing.T) {
	t.Parallel()

	const capacity = 144000
	rb, err := NewRingBuffer(capacity)
	require.NoError(t, err)

	// Stream three windows' worth in audio-callback sized chunks.
	const total = 3 * capacity
	const chunkSize = 480
	for start := 0; start < total; start += chunkSize {
		chunk := make([]float32, chunkSize)
		for i := range chunk {
			chunk[i] = float32((start+i)%1000) / 1000
		}
		rb.Write(chunk)
	}

	snap := rb.Snapshot(1.0)
	require.Len(t, snap, capacity)
	for i := 0; i < capacity; i++ {
		want := float32((total-capacity+i)%1000) / 1000
		if snap[i] != want {
			t.Fatalf("sample %d: got %v, want %v", i, snap[i], want)
		}
	}
}

func TestRingBufferConcurrentWriteAndSnapshot(t *testing.T) {
	t.Parallel()

	rb, err := NewRingBuffer(1024)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := make([]float32, 128)
		for {
			select {
			case <-stop:
				return
			default:
				rb.Write(chunk)
			}
		}
	}()

	for i := 0; i < 100; i++ {
		snap := rb.Snapshot(1.0)
		assert.Len(t, snap, 1024)
	}
	close(stop)
	wg.Wait()
}
