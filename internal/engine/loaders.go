package engine

import (
	"github.com/aviaudio/perch/internal/birdnet"
	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/geo"
)

// TFLiteLoaders wires the staged initialization to the TensorFlow Lite
// backed models. A single BirdNET instance backs both the acoustic and
// geographic scorers so the interpreters share one lifetime.
func TFLiteLoaders(settings *conf.Settings) Loaders {
	var bn *birdnet.BirdNET
	return Loaders{
		Model: func() (AcousticScorer, error) {
			var err error
			bn, err = birdnet.New(settings)
			if err != nil {
				return nil, err
			}
			return bn, nil
		},
		Geo: func() (geo.Scorer, error) {
			if err := bn.InitRangeFilter(); err != nil {
				return nil, err
			}
			return bn, nil
		},
		Labels: func(locale string) (*birdnet.LabelSet, error) {
			return birdnet.LoadLabelSet(settings.BirdNET.LabelPath, locale)
		},
	}
}
