package birdnet

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"

	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/logger"
)

// BirdNET wraps the TensorFlow Lite interpreters for the acoustic model and
// the geographic range model. The acoustic interpreter is serialized with a
// mutex; the worker is single-goroutine but offline file analysis may share
// an instance.
type BirdNET struct {
	analysisInterpreter *tflite.Interpreter
	rangeInterpreter    *tflite.Interpreter
	settings            *conf.Settings
	numClasses          int
	mu                  sync.Mutex
}

// New loads the acoustic model and allocates its interpreter. The geographic
// model is loaded separately via InitRangeFilter so its failure can degrade
// instead of aborting startup.
func New(settings *conf.Settings) (*BirdNET, error) {
	start := time.Now()

	if settings.BirdNET.ModelPath == "" {
		return nil, errors.Newf("no acoustic model path configured").
			Component("birdnet").
			Category(errors.CategoryConfiguration).
			Build()
	}

	modelData, err := os.ReadFile(settings.BirdNET.ModelPath) //nolint:gosec // G304: path from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("birdnet").
			Category(errors.CategoryModelLoad).
			Context("model_path", settings.BirdNET.ModelPath).
			Timing("model-read", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Context("model_path", settings.BirdNET.ModelPath).
			Context("model_size_mb", len(modelData)/1024/1024).
			Build()
	}

	threads := determineThreadCount(settings.BirdNET.Threads)
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		getLogger().Error("tflite error", logger.String("message", msg))
	}, nil)

	bn := &BirdNET{settings: settings}
	bn.analysisInterpreter = tflite.NewInterpreter(model, options)
	if bn.analysisInterpreter == nil {
		return nil, errors.Newf("cannot create interpreter").
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := bn.analysisInterpreter.AllocateTensors(); status != tflite.OK {
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Build()
	}

	output := bn.analysisInterpreter.GetOutputTensor(0)
	if output == nil {
		return nil, errors.Newf("cannot get output tensor from model").
			Component("birdnet").
			Category(errors.CategoryValidation).
			Build()
	}
	bn.numClasses = output.Dim(output.NumDims() - 1)

	// Model data is no longer needed; TFLite keeps its own copy.
	runtime.GC()

	getLogger().Info("acoustic model initialized",
		logger.String("model", settings.BirdNET.ModelPath),
		logger.Int("classes", bn.numClasses),
		logger.Int("threads", threads),
		logger.Duration("elapsed", time.Since(start)))
	return bn, nil
}

// InitRangeFilter loads the geographic range model. An empty configured path
// or a load failure leaves the range interpreter nil, which disables geo
// fusion; callers decide whether that is fatal (it is not, per design).
func (bn *BirdNET) InitRangeFilter() error {
	path := bn.settings.BirdNET.RangeFilter.ModelPath
	if path == "" {
		return errors.Newf("no range filter model path configured").
			Component("birdnet").
			Category(errors.CategoryConfiguration).
			Build()
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from application settings
	if err != nil {
		return errors.New(err).
			Component("birdnet").
			Category(errors.CategoryModelLoad).
			Context("model_path", path).
			Context("model_type", "range_filter").
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		return errors.Newf("cannot load range filter model").
			Component("birdnet").
			Category(errors.CategoryModelLoad).
			Context("model_type", "range_filter").
			Build()
	}

	// The meta model is tiny; one thread is plenty.
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)
	options.SetErrorReporter(func(msg string, _ any) {
		getLogger().Error("tflite range filter error", logger.String("message", msg))
	}, nil)

	bn.rangeInterpreter = tflite.NewInterpreter(model, options)
	if bn.rangeInterpreter == nil {
		return errors.Newf("cannot create range filter interpreter").
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Context("model_type", "range_filter").
			Build()
	}
	if status := bn.rangeInterpreter.AllocateTensors(); status != tflite.OK {
		bn.rangeInterpreter = nil
		return errors.Newf("tensor allocation failed for range filter: %v", status).
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Context("model_type", "range_filter").
			Build()
	}

	runtime.GC()
	return nil
}

// NumClasses returns the model's output class count.
func (bn *BirdNET) NumClasses() int { return bn.numClasses }

// HasRangeFilter reports whether the geographic model is available.
func (bn *BirdNET) HasRangeFilter() bool { return bn.rangeInterpreter != nil }

// Predict runs the acoustic model over numFrames frames laid out
// contiguously in flat (numFrames x windowSamples) and returns one raw
// probability row per frame. The interpreter input is a single window, so
// frames are evaluated sequentially under the lock.
func (bn *BirdNET) Predict(flat []float32, numFrames int) ([][]float32, error) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	if numFrames < 1 {
		return nil, errors.Newf("invalid frame count: %d", numFrames).
			Component("birdnet").
			Category(errors.CategoryValidation).
			Build()
	}
	windowSamples := len(flat) / numFrames

	input := bn.analysisInterpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Build()
	}
	if got := len(input.Float32s()); got != windowSamples {
		return nil, errors.Newf("frame length %d does not match model input %d", windowSamples, got).
			Component("birdnet").
			Category(errors.CategoryValidation).
			Context("frame_samples", windowSamples).
			Context("model_input", got).
			Build()
	}

	preds := make([][]float32, numFrames)
	for f := 0; f < numFrames; f++ {
		copy(input.Float32s(), flat[f*windowSamples:(f+1)*windowSamples])

		if status := bn.analysisInterpreter.Invoke(); status != tflite.OK {
			return nil, errors.Newf("tensor invoke failed: %v", status).
				Component("birdnet").
				Category(errors.CategoryProcessing).
				Context("frame", f).
				Build()
		}

		output := bn.analysisInterpreter.GetOutputTensor(0)
		row := make([]float32, bn.numClasses)
		copy(row, output.Float32s())
		preds[f] = row
	}
	return preds, nil
}

// ScoreLocation runs the range model for a location and week and returns a
// per-class occurrence score vector. Input tensor shape is [1,3] =
// lat/lon/week.
func (bn *BirdNET) ScoreLocation(lat, lon float64, week int) ([]float32, error) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	if bn.rangeInterpreter == nil {
		return nil, errors.Newf("range filter model not loaded").
			Component("birdnet").
			Category(errors.CategoryState).
			Build()
	}

	input := bn.rangeInterpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.Newf("cannot get range filter input tensor").
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Build()
	}
	data := []float32{float32(lat), float32(lon), float32(week)}
	if len(input.Float32s()) < len(data) {
		return nil, errors.Newf("range filter input tensor too small: need %d, have %d",
			len(data), len(input.Float32s())).
			Component("birdnet").
			Category(errors.CategoryValidation).
			Build()
	}
	copy(input.Float32s(), data)

	if status := bn.rangeInterpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("range filter invoke failed: %v", status).
			Component("birdnet").
			Category(errors.CategoryProcessing).
			Context("latitude", lat).
			Context("longitude", lon).
			Context("week", week).
			Build()
	}

	output := bn.rangeInterpreter.GetOutputTensor(0)
	size := output.Dim(output.NumDims() - 1)
	scores := make([]float32, size)
	copy(scores, output.Float32s())
	return scores, nil
}

// Delete releases both interpreters.
func (bn *BirdNET) Delete() {
	bn.mu.Lock()
	defer bn.mu.Unlock()
	if bn.analysisInterpreter != nil {
		bn.analysisInterpreter.Delete()
		bn.analysisInterpreter = nil
	}
	if bn.rangeInterpreter != nil {
		bn.rangeInterpreter.Delete()
		bn.rangeInterpreter = nil
	}
}

// determineThreadCount bounds configured interpreter threads by the CPU
// count; zero means use every core.
func determineThreadCount(configured int) int {
	cpus := runtime.NumCPU()
	if configured <= 0 || configured > cpus {
		return cpus
	}
	return configured
}

// String describes the instance for debug logging.
func (bn *BirdNET) String() string {
	return fmt.Sprintf("birdnet{classes=%d, range_filter=%t}", bn.numClasses, bn.rangeInterpreter != nil)
}
