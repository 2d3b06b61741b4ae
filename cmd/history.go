package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/nowplaying/internal/history"
)

var (
	historyLimit   int
	historyMaxAge  time.Duration
	historyCleanup bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently rendered tracks",
	Long: `List the tracks most recently rendered by render and watch.

Rendering is only journaled when history.enabled is set in the config.
Use --cleanup to drop entries older than --max-age.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyCleanup, "cleanup", false, "Delete entries older than --max-age")
	historyCmd.Flags().DurationVar(&historyMaxAge, "max-age", 30*24*time.Hour, "Age limit used by --cleanup")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	j, err := openJournal(cfg.History.DB)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyCleanup {
		deleted, err := j.Cleanup(ctx, historyMaxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %s entries older than %s\n", humanize.Comma(deleted), historyMaxAge)
	}

	entries, err := j.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	total, err := j.Count(ctx)
	if err != nil {
		return err
	}

	return printHistory(out, entries, total, time.Now())
}

// printHistory writes entries as an aligned table
func printHistory(w io.Writer, entries []history.Entry, total int, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No tracks rendered yet")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tLISTENER\tTRACK\tALBUM")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s - %s\t%s\n",
			humanize.RelTime(e.RenderedAt, now, "ago", "from now"),
			e.Listener,
			e.Artist,
			e.Title,
			e.Album,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nShowing %d of %s rendered tracks\n", len(entries), humanize.Comma(int64(total)))
	return err
}
