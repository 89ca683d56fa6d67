package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aviaudio/perch/internal/birdnet"
	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/geo"
	"github.com/aviaudio/perch/internal/logger"
	"github.com/aviaudio/perch/internal/pool"
	"github.com/aviaudio/perch/internal/telemetry"
)

const (
	// mailboxSize bounds the worker queue. The scheduler dispatches
	// unconditionally every tick, so under slow inference requests pile up
	// here FIFO and results go stale rather than being dropped; a full
	// mailbox blocks the dispatching tick.
	mailboxSize = 256

	// maxSegmentPreds caps the per-frame detection list in the segment view.
	maxSegmentPreds = 10
)

// AcousticScorer is the opaque acoustic scoring function: raw per-class
// probabilities for each fixed-length frame in a flat batch buffer.
type AcousticScorer interface {
	NumClasses() int
	Predict(flat []float32, numFrames int) ([][]float32, error)
}

// Loaders supplies the engine's staged initialization steps. Model and
// Labels are required; Geo may be nil or fail, which degrades geo fusion to
// neutral priors instead of aborting.
type Loaders struct {
	Model  func() (AcousticScorer, error)
	Geo    func() (geo.Scorer, error)
	Labels func(locale string) (*birdnet.LabelSet, error)
}

// Engine is the inference worker. Construct with New, then call Run on its
// own goroutine; submit requests with Submit and consume Responses.
type Engine struct {
	settings *conf.Settings
	loaders  Loaders
	metrics  *telemetry.Metrics
	log      logger.Logger

	requests  chan Request
	responses chan Response

	// Worker-owned state; only the Run goroutine touches these.
	scorer  AcousticScorer
	fusion  *geo.Fusion
	geoOK   bool
	species []birdnet.Species
	cache   inferenceCache
}

// New creates an engine. metrics may be nil.
func New(settings *conf.Settings, loaders Loaders, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		settings:  settings,
		loaders:   loaders,
		metrics:   metrics,
		log:       logger.Global().Module("engine"),
		requests:  make(chan Request, mailboxSize),
		responses: make(chan Response, mailboxSize),
	}
}

// Submit enqueues a request in the worker mailbox. The mailbox is FIFO; the
// call blocks when the mailbox is full, which is the backpressure behavior
// the scheduler documents.
func (e *Engine) Submit(req Request) {
	e.requests <- req
	e.metrics.SetMailboxDepth(len(e.requests))
}

// TrySubmit enqueues like Submit but gives up when stop closes, so a blocked
// dispatcher can still be torn down when the worker has stopped draining.
// Reports whether the request was enqueued.
func (e *Engine) TrySubmit(req Request, stop <-chan struct{}) bool {
	select {
	case e.requests <- req:
		e.metrics.SetMailboxDepth(len(e.requests))
		return true
	case <-stop:
		return false
	}
}

// Responses returns the ordered response stream. Responses are emitted in
// the same order their requests were enqueued.
func (e *Engine) Responses() <-chan Response { return e.responses }

// QueueDepth returns the number of requests waiting in the mailbox.
func (e *Engine) QueueDepth() int { return len(e.requests) }

// Run initializes the models and then processes the mailbox until ctx is
// cancelled. Initialization failures other than the geo model are fatal and
// reported on the response channel before returning.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.initialize(ctx); err != nil {
		e.emit(ctx, Response{Type: ResponseError, Err: err})
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-e.requests:
			e.metrics.SetMailboxDepth(len(e.requests))
			e.dispatch(ctx, req)
		}
	}
}

// initialize runs the ordered model, warmup, geo model, labels sequence
// with its discrete progress checkpoints. Each step's failure mode is
// classified independently: model load and warmup are fatal, geo model
// degrades, default labels are fatal.
func (e *Engine) initialize(ctx context.Context) error {
	scorer, err := e.loaders.Model()
	if err != nil {
		return errors.Wrap(err).
			Component("engine").
			Category(errors.CategoryModelLoad).
			Build()
	}
	e.scorer = scorer
	e.emit(ctx, Response{Type: ResponseProgress, Stage: StageLoadModel, Progress: ProgressLoadModel})

	// Warmup pass over silence so the first real cycle pays no one-time
	// allocation or graph-compilation cost.
	if _, err := e.scorer.Predict(make([]float32, conf.WindowSamples), 1); err != nil {
		return errors.Wrap(err).
			Component("engine").
			Category(errors.CategoryModelInit).
			Context("stage", StageWarmup).
			Build()
	}
	e.emit(ctx, Response{Type: ResponseProgress, Stage: StageWarmup, Progress: ProgressWarmup})

	if e.loaders.Geo != nil {
		scorer, err := e.loaders.Geo()
		if err != nil {
			// Non-fatal: geoscores stay at the neutral prior and fusion is
			// never invoked for the session.
			e.log.Warn("geo model unavailable, geoscores stay neutral", logger.Error(err))
		} else {
			e.fusion = geo.NewFusion(scorer)
			e.geoOK = true
		}
	}
	e.emit(ctx, Response{Type: ResponseProgress, Stage: StageLoadGeoModel, Progress: ProgressLoadGeoModel})

	labels, err := e.loaders.Labels(e.settings.BirdNET.Locale)
	if err != nil {
		return errors.Wrap(err).
			Component("engine").
			Category(errors.CategoryLabelLoad).
			Build()
	}
	if err := labels.Validate(e.scorer.NumClasses()); err != nil {
		return err
	}
	e.species = birdnet.BuildSpeciesTable(labels, nil)
	e.emit(ctx, Response{Type: ResponseProgress, Stage: StageLoadLabels, Progress: ProgressLoadLabels})
	e.emit(ctx, Response{Type: ResponseLabelsLoaded})
	e.emit(ctx, Response{Type: ResponseLoaded})

	e.log.Info("worker ready",
		logger.Int("classes", e.scorer.NumClasses()),
		logger.Bool("geo_fusion", e.geoOK),
		logger.String("locale", e.settings.BirdNET.Locale))
	return nil
}

func (e *Engine) dispatch(ctx context.Context, req Request) {
	switch req.Type {
	case RequestPredict:
		e.handlePredict(ctx, req)
	case RequestAreaScores:
		e.handleAreaScores(ctx, req)
	case RequestSpeciesList:
		e.handleSpeciesList(ctx, req)
	case RequestLoadLabels:
		e.handleLoadLabels(ctx, req)
	default:
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseError,
			Err: errors.Newf("unknown request type %q", req.Type).
				Component("engine").
				Category(errors.CategoryValidation).
				Build()})
	}
}

// handlePredict frames the window, scores it, applies sensitivity, refreshes
// the inference cache and emits the segment and pooled views. A failed cycle
// produces an error response and is simply superseded by the next tick; no
// retry.
func (e *Engine) handlePredict(ctx context.Context, req Request) {
	start := time.Now()

	flat, numFrames, hop := birdnet.FrameAudio(req.PCM, conf.WindowSamples, req.OverlapSec, conf.SampleRate)
	preds, err := e.scorer.Predict(flat, numFrames)
	if err != nil {
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseError, Err: err})
		return
	}
	birdnet.ApplySensitivityRows(preds, req.Sensitivity)

	if req.HasLocation && e.geoOK {
		week := req.Week
		if week == 0 {
			week = geo.Week(time.Now())
		}
		if err := e.updateGeoScores(req.Latitude, req.Longitude, week); err != nil {
			e.log.Warn("geo score update failed", logger.Error(err))
		}
	}

	e.cache = inferenceCache{
		lastPredictionList: preds,
		lastFramePooled:    pool.PoolFrames(preds),
		lastHopSamples:     hop,
		lastNumFrames:      numFrames,
		lastWindowSamples:  conf.WindowSamples,
	}

	e.emit(ctx, e.segmentsResponse(req.ID))
	e.emit(ctx, e.pooledResponse(req.ID))
	e.metrics.ObserveInference(time.Since(start))
}

// handleAreaScores updates every species geoscore for the given location and
// week, then replays the cached views with the new priors attached, without
// re-invoking the acoustic model. With no cached predictions only the
// geoscore update happens.
func (e *Engine) handleAreaScores(ctx context.Context, req Request) {
	if !e.geoOK {
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseAreaScores})
		return
	}

	week := req.Week
	if week == 0 {
		week = geo.Week(time.Now())
	}
	if err := e.updateGeoScores(req.Latitude, req.Longitude, week); err != nil {
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseError, Err: err})
		return
	}

	if e.cache.valid() {
		e.emit(ctx, e.segmentsResponse(req.ID))
		e.emit(ctx, e.pooledResponse(req.ID))
	}
	e.emit(ctx, Response{RequestID: req.ID, Type: ResponseAreaScores})
}

func (e *Engine) handleSpeciesList(ctx context.Context, req Request) {
	list := make([]birdnet.Species, len(e.species))
	copy(list, e.species)
	e.emit(ctx, Response{RequestID: req.ID, Type: ResponseSpeciesList, Species: list})
}

// handleLoadLabels swaps the species table wholesale for a new locale,
// carrying geoscores over by index. The swap is a value replacement so a
// geo update interleaving in the mailbox can never observe a half-renamed
// table.
func (e *Engine) handleLoadLabels(ctx context.Context, req Request) {
	locale, err := conf.NormalizeLocale(req.Locale)
	if err != nil {
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseError, Err: err})
		return
	}
	labels, err := e.loaders.Labels(locale)
	if err != nil {
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseError, Err: err})
		return
	}
	if err := labels.Validate(e.scorer.NumClasses()); err != nil {
		e.emit(ctx, Response{RequestID: req.ID, Type: ResponseError, Err: err})
		return
	}
	e.species = birdnet.BuildSpeciesTable(labels, e.species)
	e.settings.BirdNET.Locale = locale
	e.emit(ctx, Response{RequestID: req.ID, Type: ResponseLabelsLoaded})
}

// updateGeoScores overwrites Species.GeoScore in place, by index, from the
// fusion cache or the geo model.
func (e *Engine) updateGeoScores(lat, lon float64, week int) error {
	scores, err := e.fusion.Scores(lat, lon, week)
	if err != nil {
		return err
	}
	n := len(scores)
	if len(e.species) < n {
		n = len(e.species)
	}
	for i := 0; i < n; i++ {
		e.species[i].GeoScore = scores[i]
	}
	return nil
}

// segmentsResponse renders the per-frame view from the inference cache.
func (e *Engine) segmentsResponse(id uuid.UUID) Response {
	rate := float64(conf.SampleRate)
	segments := make([]Segment, e.cache.lastNumFrames)
	for f := 0; f < e.cache.lastNumFrames; f++ {
		start := float64(f*e.cache.lastHopSamples) / rate
		segments[f] = Segment{
			Start: start,
			End:   start + float64(e.cache.lastWindowSamples)/rate,
			Preds: e.topDetections(e.cache.lastPredictionList[f], maxSegmentPreds),
		}
	}
	return Response{RequestID: id, Type: ResponseSegments, Segments: segments}
}

// pooledResponse renders the frame-pooled view from the inference cache.
// Only classes at or above the configured minimum confidence are emitted,
// which keeps the set sparse for temporal pooling downstream.
func (e *Engine) pooledResponse(id uuid.UUID) Response {
	return Response{RequestID: id, Type: ResponsePooled,
		Pooled: e.topDetections(e.cache.lastFramePooled, len(e.cache.lastFramePooled))}
}

// topDetections filters a confidence row by the minimum confidence, sorts
// descending and caps the list, decorating each hit with species identity
// and the current geoscore.
func (e *Engine) topDetections(row []float32, limit int) []Detection {
	minConf := e.settings.Realtime.MinConfidence
	var out []Detection
	for i, c := range row {
		if float64(c) < minConf || i >= len(e.species) {
			continue
		}
		sp := e.species[i]
		out = append(out, Detection{
			Index:               i,
			Confidence:          float64(c),
			GeoScore:            sp.GeoScore,
			ScientificName:      sp.ScientificName,
			CommonName:          sp.CommonName,
			CommonNameLocalized: sp.CommonNameLocalized,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Index < out[j].Index
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// emit sends a response unless the context is already cancelled.
func (e *Engine) emit(ctx context.Context, resp Response) {
	select {
	case e.responses <- resp:
	case <-ctx.Done():
	}
}
