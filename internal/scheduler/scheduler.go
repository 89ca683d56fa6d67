// Package scheduler ties the capture cadence to worker dispatch. It owns the
// Idle/Capturing state machine, the repeating snapshot timer and the
// temporal pooling of worker responses.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aviaudio/perch/internal/audio"
	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/engine"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/logger"
	"github.com/aviaudio/perch/internal/pool"
	"github.com/aviaudio/perch/internal/telemetry"
)

// State of the capture state machine.
type State int32

const (
	StateIdle State = iota
	StateCapturing
)

// CaptureDevice is the audio producer the loop starts and stops. The malgo
// capture implements it; tests substitute a fake.
type CaptureDevice interface {
	Start() error
	Stop()
}

// Loop drives the pipeline: every interval it snapshots the ring buffer and
// dispatches a predict request, unconditionally; it does not wait for the
// previous response, so on slow hardware requests queue in the worker
// mailbox and results lag the wall clock. That documented behavior is kept
// on purpose; see the mailbox bound in the engine package.
type Loop struct {
	settings *conf.Settings
	ring     *audio.RingBuffer
	eng      *engine.Engine
	capture  CaptureDevice
	metrics  *telemetry.Metrics
	log      logger.Logger

	state atomic.Int32

	// sessionMu guards the per-session pooling state: the response
	// consumer mutates it per pooled response, Start resets it.
	sessionMu  sync.Mutex
	pooler     *pool.TemporalPooler
	names      map[int]engine.Detection
	detections chan []engine.Detection

	mu         sync.Mutex
	stopTicker chan struct{}
	tickerDone sync.WaitGroup
}

// New creates a stopped loop.
func New(settings *conf.Settings, ring *audio.RingBuffer, eng *engine.Engine, capture CaptureDevice, metrics *telemetry.Metrics) *Loop {
	return &Loop{
		settings:   settings,
		ring:       ring,
		eng:        eng,
		capture:    capture,
		metrics:    metrics,
		log:        logger.Global().Module("scheduler"),
		pooler:     pool.NewTemporalPooler(settings.Realtime.TemporalDepth),
		names:      make(map[int]engine.Detection),
		detections: make(chan []engine.Detection, 8),
	}
}

// State returns the current machine state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Detections returns the stream of temporally pooled detection lists,
// re-emitted on every pooled worker response while capturing. Slow consumers
// lose intermediate updates, never the newest one.
func (l *Loop) Detections() <-chan []engine.Detection { return l.detections }

// Start transitions Idle -> Capturing: acquires the capture device and
// starts the dispatch timer. A capture failure aborts the transition and
// returns the machine to Idle.
func (l *Loop) Start() error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateCapturing)) {
		return errors.Newf("already capturing").
			Component("scheduler").
			Category(errors.CategoryState).
			Build()
	}

	if err := l.capture.Start(); err != nil {
		l.state.Store(int32(StateIdle))
		return err
	}

	// Fresh session: drop retained cycles and the stale identity
	// decoration from the previous session.
	l.sessionMu.Lock()
	l.pooler.Reset()
	l.names = make(map[int]engine.Detection)
	l.sessionMu.Unlock()

	l.mu.Lock()
	l.stopTicker = make(chan struct{})
	stop := l.stopTicker
	l.mu.Unlock()

	l.tickerDone.Add(1)
	go l.dispatchLoop(stop)

	l.log.Info("capture session started",
		logger.Int("interval_ms", l.settings.Realtime.Interval),
		logger.Float64("overlap_sec", l.settings.BirdNET.Overlap))
	return nil
}

// Stop transitions Capturing -> Idle: clears the timer and tears down the
// audio source. A predict already in flight is not cancelled; its response
// is discarded by the state check in the response consumer.
func (l *Loop) Stop() {
	if !l.state.CompareAndSwap(int32(StateCapturing), int32(StateIdle)) {
		return
	}

	l.mu.Lock()
	close(l.stopTicker)
	l.mu.Unlock()
	l.tickerDone.Wait()

	l.capture.Stop()
	l.log.Info("capture session stopped")
}

// dispatchLoop fires one predict per tick for the lifetime of a session.
func (l *Loop) dispatchLoop(stop chan struct{}) {
	defer l.tickerDone.Done()

	interval := time.Duration(l.settings.Realtime.Interval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			window := l.ring.Snapshot(l.settings.Realtime.Gain)
			req := engine.NewPredictRequest(window, l.settings.BirdNET.Overlap, l.settings.BirdNET.Sensitivity)
			if l.settings.HasLocation() {
				req = req.WithLocation(l.settings.BirdNET.Latitude, l.settings.BirdNET.Longitude)
			}
			// A full mailbox blocks the tick until the worker drains or
			// the session stops; Stop must never wait behind the send.
			if !l.eng.TrySubmit(req, stop) {
				return
			}
			l.metrics.IncPredictRequests()
		}
	}
}

// Run consumes worker responses until ctx is cancelled. It must run for the
// loop's whole lifetime, not just per session, so responses from predicts
// that were in flight at Stop are drained and discarded.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case resp := <-l.eng.Responses():
			l.handleResponse(resp)
		}
	}
}

func (l *Loop) handleResponse(resp engine.Response) {
	switch resp.Type {
	case engine.ResponsePooled:
		if l.State() != StateCapturing {
			// Stale response from before Stop; ignore.
			return
		}
		l.handlePooled(resp.Pooled)
	case engine.ResponseError:
		l.log.Warn("worker error", logger.Error(resp.Err))
	case engine.ResponseProgress:
		l.log.Info("worker init",
			logger.String("stage", resp.Stage),
			logger.Int("progress", resp.Progress))
	default:
		// Segment views and acks are informational at this layer.
	}
}

// handlePooled pushes one cycle's frame-pooled result into the temporal
// pooler and re-emits the smoothed, ranked list.
func (l *Loop) handlePooled(detections []engine.Detection) {
	l.sessionMu.Lock()
	scores := make([]pool.Score, len(detections))
	for i, d := range detections {
		scores[i] = pool.Score{Index: d.Index, Confidence: d.Confidence}
		l.names[d.Index] = d
	}
	l.pooler.Push(scores)

	pooled := l.pooler.Pooled()
	out := make([]engine.Detection, 0, len(pooled))
	for _, s := range pooled {
		d, ok := l.names[s.Index]
		if !ok {
			continue
		}
		d.Confidence = s.Confidence
		out = append(out, d)
	}
	l.sessionMu.Unlock()

	if len(out) > 0 {
		l.metrics.IncDetection(out[0].CommonName)
	}

	// Latest-wins delivery: drop the oldest queued update when full.
	for {
		select {
		case l.detections <- out:
			return
		default:
			select {
			case <-l.detections:
			default:
			}
		}
	}
}
