package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"Song-Rec-Go/pkg/music"
)

var identifyCmd = &cobra.Command{
	Use:   "identify FILE",
	Short: "Identify an audio file and list similar tracks",
	Long: `Identify the song in an existing audio file and list similar tracks.
The file is left in place.

Examples:
  songrec identify clip.m4a
  songrec identify clip.m4a --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		p := *services.Pipeline
		p.KeepCaptures = true
		res, err := p.Run(cmd.Context(), music.AudioCapture{Path: args[0], Size: info.Size()})
		return outputResult(cmd.OutOrStdout(), res, err)
	},
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}
