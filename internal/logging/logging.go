// Package logging builds the zerolog loggers used across nowplaying.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level. Unknown names fall back
// to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a timestamped logger writing to out. With console set the
// output is human readable instead of JSON.
func New(out io.Writer, level string, console bool) zerolog.Logger {
	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Open creates a logger for the command line. When logFile is set, JSON
// lines are appended to it; otherwise stderr gets console output. The
// returned close func releases the file.
func Open(logFile, level string) (zerolog.Logger, func() error, error) {
	if logFile == "" {
		return New(os.Stderr, level, true), func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return New(os.Stderr, level, true), func() error { return nil }, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level, false), f.Close, nil
}

// Component derives a child logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// LastFM adapts a zerolog logger to the lastfm client's Logger interface.
type LastFM struct {
	logger zerolog.Logger
}

// NewLastFM wraps logger for use as lastfm.Config.Logger.
func NewLastFM(logger zerolog.Logger) *LastFM {
	return &LastFM{logger: Component(logger, "lastfm")}
}

// Debugf implements lastfm.Logger.
func (l *LastFM) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}
