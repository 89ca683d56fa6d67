package audio

import "encoding/binary"

// s16ToFloat32 converts little-endian signed 16-bit PCM bytes to float32
// samples in [-1, 1). Odd trailing bytes are ignored.
func s16ToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[2*i : 2*i+2]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// downmixMono averages interleaved channels into a mono stream. A single
// channel input is returned as-is.
func downmixMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[f*channels+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
