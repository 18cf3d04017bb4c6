package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"Song-Rec-Go/pkg/music"
)

var (
	recommendTitle  string
	recommendArtist string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "List tracks similar to a known song",
	Long: `Look a song up in the catalog and list similar tracks.

Examples:
  songrec recommend --title "Song" --artist "Artist"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		track := music.IdentifiedTrack{Title: strings.TrimSpace(recommendTitle), Artist: strings.TrimSpace(recommendArtist)}
		if !track.Valid() {
			return errors.New("--title is required")
		}
		recs, err := services.Pipeline.Recommend(cmd.Context(), track)
		return outputResult(cmd.OutOrStdout(), music.Result{Track: track, Recommendations: recs}, err)
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendTitle, "title", "", "song title")
	recommendCmd.Flags().StringVar(&recommendArtist, "artist", "", "song artist")
	rootCmd.AddCommand(recommendCmd)
}
