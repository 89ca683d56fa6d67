package analysis

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/aviaudio/perch/internal/audio"
	"github.com/aviaudio/perch/internal/birdnet"
	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/logger"
	"github.com/aviaudio/perch/internal/pool"
)

// FileAnalysis scores one WAV file offline: the whole file is framed with
// the configured overlap, every frame is scored, and both the per-segment
// and the frame-pooled views are printed. No temporal pooling applies; the
// file is a single observation.
func FileAnalysis(ctx context.Context, settings *conf.Settings, path string) error {
	log := logger.Global().Module("analysis")

	samples, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}
	log.Info("file loaded",
		logger.String("path", path),
		logger.Float64("duration_sec", float64(len(samples))/float64(conf.SampleRate)))

	bn, err := birdnet.New(settings)
	if err != nil {
		return err
	}
	defer bn.Delete()

	labels, err := birdnet.LoadLabelSet(settings.BirdNET.LabelPath, settings.BirdNET.Locale)
	if err != nil {
		return err
	}
	if err := labels.Validate(bn.NumClasses()); err != nil {
		return err
	}
	species := birdnet.BuildSpeciesTable(labels, nil)

	if err := ctx.Err(); err != nil {
		return err
	}

	flat, numFrames, hop := birdnet.FrameAudio(samples, conf.WindowSamples, settings.BirdNET.Overlap, conf.SampleRate)
	preds, err := bn.Predict(flat, numFrames)
	if err != nil {
		return err
	}
	birdnet.ApplySensitivityRows(preds, settings.BirdNET.Sensitivity)

	rate := float64(conf.SampleRate)
	for f, row := range preds {
		start := float64(f*hop) / rate
		end := start + float64(conf.WindowSamples)/rate
		printed := false
		for _, hit := range topOfRow(row, species, settings.Realtime.MinConfidence, 3) {
			fmt.Fprintf(os.Stdout, "%7.1fs - %6.1fs  %-40s %.3f\n", start, end, hit.name, hit.confidence)
			printed = true
		}
		if !printed && settings.Debug {
			fmt.Fprintf(os.Stdout, "%7.1fs - %6.1fs  (no detections)\n", start, end)
		}
	}

	fmt.Fprintln(os.Stdout, "\nfile summary:")
	pooled := pool.PoolFrames(preds)
	for _, hit := range topOfRow(pooled, species, settings.Realtime.MinConfidence, 10) {
		fmt.Fprintf(os.Stdout, "  %-40s %.3f\n", hit.name, hit.confidence)
	}
	return nil
}

type rowHit struct {
	name       string
	confidence float64
}

// topOfRow filters one confidence row by the minimum and returns the top
// hits in descending order.
func topOfRow(row []float32, species []birdnet.Species, minConf float64, limit int) []rowHit {
	type indexed struct {
		index int
		conf  float64
	}
	var hits []indexed
	for i, c := range row {
		if float64(c) >= minConf && i < len(species) {
			hits = append(hits, indexed{index: i, conf: float64(c)})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].conf != hits[j].conf {
			return hits[i].conf > hits[j].conf
		}
		return hits[i].index < hits[j].index
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]rowHit, len(hits))
	for i, h := range hits {
		sp := species[h.index]
		name := sp.CommonNameLocalized
		if name == "" {
			name = sp.CommonName
		}
		out[i] = rowHit{name: name, confidence: h.conf}
	}
	return out
}
