// Package analysis contains the top level entry points the commands invoke:
// continuous realtime analysis and one-shot file analysis.
package analysis

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aviaudio/perch/internal/audio"
	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/engine"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/logger"
	"github.com/aviaudio/perch/internal/scheduler"
	"github.com/aviaudio/perch/internal/telemetry"
)

// maxPrinted caps the detection lines rendered per update.
const maxPrinted = 5

// RealtimeAnalysis runs the full capture, inference and pooling pipeline
// until the context is cancelled or an interrupt arrives. It owns process
// wide concerns: signal handling, the optional telemetry listener and the
// stdout rendering of pooled detections.
func RealtimeAnalysis(ctx context.Context, settings *conf.Settings) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Global().Module("analysis")
	log.Info("starting realtime analysis", logger.String("settings", settings.String()))

	var metrics *telemetry.Metrics
	if settings.Realtime.Telemetry.Enabled {
		m, err := telemetry.NewMetrics()
		if err != nil {
			return errors.Wrap(err).
				Component("analysis").
				Category(errors.CategoryConfiguration).
				Build()
		}
		metrics = m
	}

	ring, err := audio.NewRingBuffer(conf.WindowSamples)
	if err != nil {
		return err
	}
	levelCh := make(chan audio.LevelData, 10)
	capture := audio.NewCapture(settings, ring, levelCh)
	eng := engine.New(settings, engine.TFLiteLoaders(settings), metrics)
	loop := scheduler.New(settings, ring, eng, capture, metrics)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return loop.Run(ctx) })

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case level := <-levelCh:
				metrics.SetAudioLevel(level.Level)
			}
		}
	})

	g.Go(func() error {
		return renderDetections(ctx, loop.Detections())
	})

	if metrics != nil {
		g.Go(func() error {
			return serveTelemetry(ctx, settings.Realtime.Telemetry.Listen, metrics)
		})
	}

	// Capture starts immediately; predicts dispatched while the worker is
	// still loading models queue in the mailbox and drain once it is ready.
	if err := loop.Start(); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	defer loop.Stop()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("realtime analysis stopped")
	return nil
}

// renderDetections prints each temporally pooled update as a ranked list.
func renderDetections(ctx context.Context, updates <-chan []engine.Detection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case detections := <-updates:
			if len(detections) == 0 {
				continue
			}
			ts := time.Now().Format("15:04:05")
			for i, d := range detections {
				if i >= maxPrinted {
					break
				}
				name := d.CommonNameLocalized
				if name == "" {
					name = d.CommonName
				}
				fmt.Fprintf(os.Stdout, "%s  %-40s %.3f  (geo %.2f)\n", ts, name, d.Confidence, d.GeoScore)
			}
		}
	}
}

// serveTelemetry runs the prometheus scrape endpoint for the lifetime of ctx.
func serveTelemetry(ctx context.Context, listen string, metrics *telemetry.Metrics) error {
	mux := http.NewServeMux()
	metrics.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return errors.New(err).
				Component("analysis").
				Category(errors.CategoryGeneric).
				Context("listen", listen).
				Build()
		}
		return nil
	}
}
