package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchRefresh int

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the page up to date",
	Long: `Render the current track into the page, then refresh it every
refresh_period milliseconds until interrupted.

A refresh that comes due while the previous one is still waiting on
Last.fm is skipped. Handles graceful shutdown on SIGINT/SIGTERM; a
second signal forces exit.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&renderPage, "page", "p", "", "HTML page to render into (overrides config)")
	watchCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Where to write the page (default: the page itself)")
	watchCmd.Flags().IntVarP(&watchRefresh, "refresh", "r", 0, "Refresh period in milliseconds (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if watchRefresh != 0 {
		cfg.RefreshPeriod = time.Duration(watchRefresh) * time.Millisecond
	}
	if cfg.RefreshPeriod <= 0 {
		return fmt.Errorf("watch needs a positive refresh period: set refresh_period or pass --refresh")
	}

	logger, closeLog := setupLogger()
	defer func() { _ = closeLog() }()

	w, cleanup, err := setupWidget(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// First signal stops gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Info().Msg("Shutdown signal received, finishing current cycle")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	logger.Info().Msg("Stopped")
	return nil
}
