package conf

// Audio format constants. The acoustic model expects 3 second windows of
// 48 kHz mono PCM, so these are fixed for the whole pipeline.
const (
	SampleRate    = 48000
	NumChannels   = 1
	BitDepth      = 16
	WindowSeconds = 3

	// WindowSamples is the number of samples in one model input window and
	// also the capacity of the rolling capture buffer.
	WindowSamples = SampleRate * WindowSeconds
)

// Pipeline defaults.
const (
	DefaultIntervalMs     = 500
	DefaultTemporalDepth  = 5
	DefaultSensitivity    = 1.0
	DefaultOverlapSec     = 0.0
	DefaultGain           = 1.0
	DefaultMinConfidence  = 0.01
	DefaultFallbackLocale = "en"
)
