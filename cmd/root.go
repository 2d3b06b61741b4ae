package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/nowplaying/internal/config"
	"github.com/jfmyers9/nowplaying/internal/fetch"
	"github.com/jfmyers9/nowplaying/internal/logging"
	"github.com/jfmyers9/nowplaying/internal/normalize"
	"github.com/jfmyers9/nowplaying/pkg/lastfm"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configFile string
	logFile    string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nowplaying",
	Short: "Show what your group is listening to on Last.fm",
	Long: `nowplaying shows the track most recently started by any member of a
group of Last.fm listeners.

Every cycle it asks Last.fm for each member's latest track, picks the
freshest "now playing" one and renders it into an HTML page next to an
anchor element, using a template with tokens such as { track.artist }.

It also provides a CLI command to print the current track, useful for
tmux status lines or other status bars.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ~/.config/nowplaying/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig reads the file given by --config, or the default locations.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

// setupLogger opens the logger configured by the root flags. The returned
// func closes the log file, if any.
func setupLogger() (zerolog.Logger, func() error) {
	logger, closeFn, err := logging.Open(logFile, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
	}
	return logger, closeFn
}

// newFetcher builds a fetcher backed by the Last.fm API.
func newFetcher(cfg *config.Config, logger zerolog.Logger) (*fetch.Fetcher, error) {
	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:     cfg.LastFM.APIKey,
		BaseURL:    cfg.LastFM.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.CycleTimeout},
		Logger:     logging.NewLastFM(logger),
		UserAgent:  "nowplaying/" + version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	return fetch.New(
		fetch.NewLastFM(client),
		normalize.New(nil),
		fetch.WithMaxInFlight(cfg.MaxInFlight),
		fetch.WithLogger(logger),
	), nil
}
