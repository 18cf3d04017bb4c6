package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var recordDuration time.Duration

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone, identify and list similar tracks",
	Long: `Record a short clip through ffmpeg, identify it and list similar tracks.
Recording stops after --duration or on Ctrl-C, whichever comes first.

Examples:
  songrec record
  songrec record --duration 5s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := recordDuration
		if d <= 0 {
			d = services.Config.RecordDuration
		}
		ctx := cmd.Context()

		h, err := services.Recorder.Start(ctx)
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", styles.Dim.Render(fmt.Sprintf("Listening for %s (Ctrl-C to stop early)...", d)))

		sig, stop := signal.NotifyContext(ctx, os.Interrupt)
		select {
		case <-time.After(d):
		case <-sig.Done():
		}
		stop()

		capture, err := services.Recorder.Stop(ctx, h)
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		res, err := services.Pipeline.Run(ctx, capture)
		return outputResult(cmd.OutOrStdout(), res, err)
	},
}

func init() {
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "recording length (default from RECORD_DURATION)")
	rootCmd.AddCommand(recordCmd)
}
