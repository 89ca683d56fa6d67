// Package cmd assembles the perch command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aviaudio/perch/cmd/file"
	"github.com/aviaudio/perch/cmd/rangefilter"
	"github.com/aviaudio/perch/cmd/realtime"
	"github.com/aviaudio/perch/internal/conf"
)

// RootCommand builds the root command and its subcommands. Persistent flag
// defaults come from the loaded settings, so precedence is flag over config
// file over built-in default.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "perch",
		Short: "realtime bird sound identification",
		Long:  "perch captures audio, scores it with an acoustic model and fuses geographic priors into ranked species detections",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return settings.Validate()
		},
	}

	rootCmd.AddCommand(
		realtime.Command(settings),
		file.Command(settings),
		rangefilter.Command(settings),
	)

	setupFlags(rootCmd, settings)
	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	flags := rootCmd.PersistentFlags()

	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "enable debug output")
	flags.Float64VarP(&settings.BirdNET.Sensitivity, "sensitivity", "s", settings.BirdNET.Sensitivity, "detection sensitivity, 0.5 to 1.5")
	flags.Float64VarP(&settings.BirdNET.Overlap, "overlap", "o", settings.BirdNET.Overlap, "window overlap in seconds, 0 to 2.5 in 0.5 s steps")
	flags.IntVarP(&settings.BirdNET.Threads, "threads", "j", settings.BirdNET.Threads, "interpreter threads, 0 = all cores")
	flags.Float64Var(&settings.BirdNET.Latitude, "latitude", settings.BirdNET.Latitude, "location latitude for geographic priors")
	flags.Float64Var(&settings.BirdNET.Longitude, "longitude", settings.BirdNET.Longitude, "location longitude for geographic priors")
	flags.StringVarP(&settings.BirdNET.Locale, "locale", "l", settings.BirdNET.Locale, "locale for common species names")
	flags.StringVarP(&settings.BirdNET.ModelPath, "model", "m", settings.BirdNET.ModelPath, "path to the acoustic model file")
	flags.StringVar(&settings.BirdNET.LabelPath, "labels", settings.BirdNET.LabelPath, "directory containing species label files")
	flags.StringVar(&settings.BirdNET.RangeFilter.ModelPath, "rangefilter-model", settings.BirdNET.RangeFilter.ModelPath, "path to the geographic range model, empty disables geo fusion")
}
