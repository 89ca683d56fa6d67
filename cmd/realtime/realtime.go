// Package realtime implements the continuous capture and analysis command.
package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aviaudio/perch/internal/analysis"
	"github.com/aviaudio/perch/internal/audio"
	"github.com/aviaudio/perch/internal/conf"
)

// Command creates the realtime command.
func Command(settings *conf.Settings) *cobra.Command {
	var listDevices bool

	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "analyze microphone input in realtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listDevices {
				return printDevices()
			}
			return analysis.RealtimeAnalysis(cmd.Context(), settings)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&settings.Realtime.Audio.Source, "source", settings.Realtime.Audio.Source, "capture device name or id, \"sysdefault\" for the system default")
	flags.IntVar(&settings.Realtime.Interval, "interval", settings.Realtime.Interval, "inference dispatch interval in milliseconds")
	flags.Float64Var(&settings.Realtime.Gain, "gain", settings.Realtime.Gain, "gain applied to captured audio")
	flags.IntVar(&settings.Realtime.TemporalDepth, "temporal-depth", settings.Realtime.TemporalDepth, "number of cycles pooled over time")
	flags.Float64Var(&settings.Realtime.MinConfidence, "min-confidence", settings.Realtime.MinConfidence, "minimum confidence to report a species")
	flags.BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", settings.Realtime.Telemetry.Enabled, "serve prometheus metrics")
	flags.StringVar(&settings.Realtime.Telemetry.Listen, "listen", settings.Realtime.Telemetry.Listen, "telemetry listen address")
	flags.BoolVar(&listDevices, "list-devices", false, "list capture devices and exit")

	return cmd
}

func printDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(os.Stdout, "no capture devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(os.Stdout, "%2d  %-40s %s\n", d.Index, d.Name, d.ID)
	}
	return nil
}
