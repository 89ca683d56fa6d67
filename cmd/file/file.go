// Package file implements offline analysis of a WAV file.
package file

import (
	"github.com/spf13/cobra"

	"github.com/aviaudio/perch/internal/analysis"
	"github.com/aviaudio/perch/internal/conf"
)

// Command creates the file command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "file [wav file]",
		Short: "analyze a WAV audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.FileAnalysis(cmd.Context(), settings, args[0])
		},
	}
}
