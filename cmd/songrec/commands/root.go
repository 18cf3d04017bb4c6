package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"Song-Rec-Go/internal/app"
	"Song-Rec-Go/pkg/config"
	"Song-Rec-Go/pkg/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string
	outputJSON bool

	// services is built by the root PersistentPreRunE.
	services *app.Services
)

// newServices builds the pipeline for a loaded config. Tests replace it to
// point the upstream clients at fakes.
var newServices = func(cfg config.Config) *app.Services {
	return app.New(cfg, nil)
}

var rootCmd = &cobra.Command{
	Use:   "songrec",
	Short: "Identify a song and find similar tracks",
	Long: `songrec - identify the song that is playing and list similar tracks.

Configuration is read from environment variables and, optionally, a YAML
file given with --config:
  SHAZAM_API_KEY, SHAZAM_API_HOST     fingerprint service credentials
  SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET  catalog credentials
  RECORD_INPUT, RECORD_FORMAT         ffmpeg capture device

Examples:
  songrec record --duration 8s
  songrec identify clip.m4a
  songrec recommend --title "Song" --artist "Artist" --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := logging.Configure(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		services = newServices(cfg)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if services != nil {
		services.Close()
		services = nil
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
}
