package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/nowplaying/internal/config"
	"github.com/jfmyers9/nowplaying/internal/history"
	"github.com/jfmyers9/nowplaying/internal/page"
	"github.com/jfmyers9/nowplaying/internal/widget"
)

var (
	renderPage   string
	renderOutput string
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the current track into an HTML page once",
	Long: `Fetch every member's latest track from Last.fm, pick the most recently
started "now playing" track and render it into the page after the anchor
element.

The template is taken from the config (template or template_file) or,
when neither is set, from the anchor element's own content, for example:

  <script type="text/template" id="lastfm">
    <a href="{ track.url }">{ track.artist } - { track.title }</a>
  </script>

When nobody is playing the page is left as it is.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderPage, "page", "p", "", "HTML page to render into (overrides config)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Where to write the page (default: the page itself)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closeLog := setupLogger()
	defer func() { _ = closeLog() }()

	w, cleanup, err := setupWidget(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := w.RunCycle(cmd.Context())
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if !out.Rendered {
		logger.Info().Int("failures", out.Failures).Msg("Nobody is playing, page left unchanged")
	}
	return nil
}

// setupWidget wires a widget controller from cfg and the render flags.
// The returned cleanup func closes the journal, if any.
func setupWidget(cfg *config.Config, logger zerolog.Logger) (*widget.Controller, func(), error) {
	if renderPage != "" {
		cfg.Page = renderPage
	}
	if renderOutput != "" {
		cfg.Output = renderOutput
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Page == "" {
		return nil, nil, fmt.Errorf("no page configured: set page in the config or pass --page")
	}

	tmpl, err := cfg.TemplateSource()
	if err != nil {
		return nil, nil, err
	}

	p, err := page.Load(cfg.Page, cfg.Output)
	if err != nil {
		return nil, nil, err
	}

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	wcfg := cfg.Widget()
	wcfg.Template = tmpl

	var opts []widget.Option
	cleanup := func() {}
	if cfg.History.Enabled {
		j, err := openJournal(cfg.History.DB)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, widget.WithJournal(j))
		cleanup = func() {
			if err := j.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close history journal")
			}
		}
	}

	w, err := widget.New(wcfg, fetcher, p, logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return w, cleanup, nil
}

// openJournal opens the render journal, creating its directory if needed.
func openJournal(path string) (*history.Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	j, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history journal: %w", err)
	}
	return j, nil
}
