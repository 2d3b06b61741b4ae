package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/nowplaying/internal/aggregate"
	"github.com/jfmyers9/nowplaying/internal/render"
	"github.com/jfmyers9/nowplaying/internal/track"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Print the track the group is listening to",
	Long: `Ask Last.fm for every member's latest track and print the most
recently started "now playing" one on a single line.

The output format can be customized with output_format in
~/.config/nowplaying/config.yaml using the same tokens as page
templates: { track.artist }, { track.album }, { track.title },
{ track.url } and { track.image.small|medium|large|extralarge }.

Exit codes:
  0 - Someone is playing a track
  1 - Nobody is playing, or Last.fm could not be reached`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag to override config
	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	// Add marquee flag to enable scrolling
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Check for format flag override
	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}
	tmpl := render.Parse(cfg.OutputFormat)
	if len(tmpl.Tokens()) == 0 {
		return fmt.Errorf("output format %q contains no track tokens", cfg.OutputFormat)
	}

	logger, closeLog := setupLogger()
	defer func() { _ = closeLog() }()

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CycleTimeout)
	defer cancel()

	results, err := aggregate.Join(ctx, fetcher.Launch(ctx, cfg.Members))
	if err != nil {
		return fmt.Errorf("failed to get current track: %w", err)
	}

	winner, ok := aggregate.Select(aggregate.Candidates(results, logger))
	if !ok {
		// Nobody playing, exit with code 1
		os.Exit(1)
		return nil
	}

	output := formatTrack(tmpl, winner)

	// Apply width padding/marquee if requested
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee, _ := cmd.Flags().GetBool("marquee")
	if !cmd.Flags().Changed("marquee") {
		marquee = cfg.MarqueeEnabled
	}

	if width > 0 {
		if marquee {
			output = marqueeText(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = padToWidth(output, width)
		}
	}

	fmt.Println(output)
	return nil
}

// formatTrack renders the winner as a single line of plain text
func formatTrack(tmpl *render.Template, rec track.Record) string {
	line := tmpl.ExecuteText(rec)
	return strings.Join(strings.Fields(line), " ")
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis

		// A wide rune may leave the truncation one column short
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	}

	if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}

// marqueeText scrolls text that exceeds width through a fixed window.
// Text that fits is padded instead.
//
// The window starts at (at.Unix() * speed) modulo the length of
// "text + separator + text", so every call at the same second prints the
// same frame and status bars that refresh periodically see it advance.
func marqueeText(text string, width int, speed int, separator string, at time.Time) string {
	if width <= 0 {
		return text
	}

	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	extendedRunes := []rune(text + separator + text)
	totalChars := len(extendedRunes)
	position := int(at.Unix()*int64(speed)) % totalChars

	var result []rune
	resultWidth := 0

	for i := 0; i < totalChars && resultWidth < width; i++ {
		r := extendedRunes[(position+i)%totalChars]
		rw := runewidth.RuneWidth(r)
		if resultWidth+rw > width {
			break
		}
		result = append(result, r)
		resultWidth += rw
	}

	if resultWidth < width {
		return string(result) + strings.Repeat(" ", width-resultWidth)
	}

	return string(result)
}
