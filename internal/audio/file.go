package audio

import (
	"os"

	"github.com/go-audio/wav"

	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/errors"
)

// ReadWAV decodes a WAV file into mono float32 samples in [-1, 1]. Multi
// channel files are downmixed by averaging. The sample rate must match the
// pipeline rate; resampling is out of scope for offline analysis.
func ReadWAV(path string) ([]float32, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the CLI argument
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, errors.Newf("not a valid WAV file: %s", path).
			Component("audio").
			Category(errors.CategoryAudio).
			Context("path", path).
			Build()
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudio).
			Context("path", path).
			Build()
	}

	if buf.Format.SampleRate != conf.SampleRate {
		return nil, errors.Newf("unsupported sample rate %d, expected %d",
			buf.Format.SampleRate, conf.SampleRate).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return downmixMono(samples, buf.Format.NumChannels), nil
}
