// Package rangefilter implements the command that prints which species the
// geographic range model expects at a location and week.
package rangefilter

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/aviaudio/perch/internal/birdnet"
	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/geo"
)

// Command creates the rangefilter command.
func Command(settings *conf.Settings) *cobra.Command {
	var week int

	cmd := &cobra.Command{
		Use:   "rangefilter",
		Short: "print species expected at the configured location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSpeciesScores(settings, week)
		},
	}

	cmd.Flags().IntVar(&week, "week", 0, "week of year 1-52, 0 = current week")
	return cmd
}

func printSpeciesScores(settings *conf.Settings, week int) error {
	if !settings.HasLocation() {
		return errors.Newf("no location configured, set latitude and longitude").
			Component("rangefilter").
			Category(errors.CategoryConfiguration).
			Build()
	}

	bn, err := birdnet.New(settings)
	if err != nil {
		return err
	}
	defer bn.Delete()
	if err := bn.InitRangeFilter(); err != nil {
		return err
	}

	labels, err := birdnet.LoadLabelSet(settings.BirdNET.LabelPath, settings.BirdNET.Locale)
	if err != nil {
		return err
	}
	if err := labels.Validate(bn.NumClasses()); err != nil {
		return err
	}
	species := birdnet.BuildSpeciesTable(labels, nil)

	if week == 0 {
		week = geo.Week(time.Now())
	}
	scores, err := bn.ScoreLocation(settings.BirdNET.Latitude, settings.BirdNET.Longitude, week)
	if err != nil {
		return err
	}

	type scored struct {
		name  string
		score float64
	}
	var expected []scored
	for i, s := range scores {
		if i >= len(species) || float64(s) < settings.BirdNET.RangeFilter.Threshold {
			continue
		}
		name := species[i].CommonNameLocalized
		if name == "" {
			name = species[i].CommonName
		}
		expected = append(expected, scored{name: name, score: float64(s)})
	}
	sort.Slice(expected, func(i, j int) bool { return expected[i].score > expected[j].score })

	fmt.Fprintf(os.Stdout, "%d species expected at %.4f, %.4f in week %d:\n",
		len(expected), settings.BirdNET.Latitude, settings.BirdNET.Longitude, week)
	for _, s := range expected {
		fmt.Fprintf(os.Stdout, "  %-40s %.3f\n", s.name, s.score)
	}
	return nil
}
