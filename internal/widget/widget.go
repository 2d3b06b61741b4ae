// Package widget runs the now playing cycle: fetch every member's latest
// track, pick the freshest now playing record and render it into a page.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/jfmyers9/nowplaying/internal/aggregate"
	"github.com/jfmyers9/nowplaying/internal/fetch"
	"github.com/jfmyers9/nowplaying/internal/render"
	"github.com/jfmyers9/nowplaying/internal/track"
)

// DefaultCycleTimeout bounds a cycle when Config.CycleTimeout is zero.
const DefaultCycleTimeout = 15 * time.Second

var (
	ErrNoMembers      = errors.New("at least one member is required")
	ErrNoAPIKey       = errors.New("api key is required")
	ErrNoAnchor       = errors.New("anchor element id is required")
	ErrInvalidRefresh = errors.New("refresh period must not be negative")

	// ErrCycleInFlight is returned by RunCycle while another cycle runs.
	ErrCycleInFlight = errors.New("cycle already in flight")
)

// Config holds widget configuration
type Config struct {
	Members       []string      // Last.fm usernames, in tie-break order
	APIKey        string        // Last.fm API key
	RefreshPeriod time.Duration // Zero renders once
	Template      string        // Token markup; empty uses the anchor's content
	Anchor        string        // Id of the element renders are placed after
	CycleTimeout  time.Duration // Upper bound on one cycle
	MaxInFlight   int           // Concurrent request limit, zero for none
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	switch {
	case len(c.Members) == 0:
		return ErrNoMembers
	case c.APIKey == "":
		return ErrNoAPIKey
	case c.Anchor == "":
		return ErrNoAnchor
	case c.RefreshPeriod < 0:
		return ErrInvalidRefresh
	}
	for i, m := range c.Members {
		if m == "" {
			return fmt.Errorf("member %d: %w", i, ErrNoMembers)
		}
	}
	return nil
}

// Page is the document renders are mounted into.
type Page interface {
	Document() *html.Node
	Save() error
}

// Journal records rendered winners.
type Journal interface {
	Record(ctx context.Context, cycleID uuid.UUID, rec track.Record, renderedAt time.Time) error
}

// State is the controller's position in the cycle.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateAggregating
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateAggregating:
		return "aggregating"
	case StateRendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// Outcome summarises one cycle.
type Outcome struct {
	CycleID  uuid.UUID
	Winner   *track.Record // nil when nobody is playing
	Rendered bool
	Failures int // Listeners excluded by fetch or decode errors
}

// Controller drives cycles for one page.
type Controller struct {
	cfg      Config
	fetcher  *fetch.Fetcher
	page     Page
	renderer *render.Renderer
	journal  Journal
	now      func() time.Time
	logger   zerolog.Logger

	tmpl  *render.Template
	state atomic.Int32
	busy  atomic.Bool
	last  *track.Record // Last rendered winner, guarded by busy
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records every rendered winner in j.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithClock sets the clock used for render timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a Controller. The fetcher must be configured with the same
// API key as cfg.
func New(cfg Config, fetcher *fetch.Fetcher, page Page, logger zerolog.Logger, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid widget config: %w", err)
	}
	if fetcher == nil || page == nil {
		return nil, errors.New("fetcher and page are required")
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}

	c := &Controller{
		cfg:      cfg,
		fetcher:  fetcher,
		page:     page,
		renderer: render.New(cfg.Anchor),
		now:      time.Now,
		logger:   logger.With().Str("component", "widget").Logger(),
	}
	if cfg.Template != "" {
		c.tmpl = render.Parse(cfg.Template)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current cycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// RunCycle runs one fetch, aggregate and render pass. When nobody is
// playing the page is left untouched and the error is nil.
func (c *Controller) RunCycle(ctx context.Context) (Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrCycleInFlight
	}
	defer c.busy.Store(false)
	return c.runCycle(ctx)
}

// runCycle must be called with busy held.
func (c *Controller) runCycle(ctx context.Context) (Outcome, error) {
	defer c.setState(StateIdle)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CycleTimeout)
	defer cancel()

	start := time.Now()
	c.setState(StateFetching)
	batch := c.fetcher.Launch(ctx, c.cfg.Members)
	out := Outcome{CycleID: batch.ID()}
	logger := c.logger.With().Str("cycle_id", batch.ID().String()).Logger()

	c.setState(StateAggregating)
	results, err := aggregate.Join(ctx, batch)
	if err != nil {
		return out, fmt.Errorf("cycle %s: %w", out.CycleID, err)
	}
	for _, r := range results {
		if r.Failed() {
			out.Failures++
		}
	}

	winner, ok := aggregate.Select(aggregate.Candidates(results, logger))
	if !ok {
		logger.Debug().
			Int("failures", out.Failures).
			Dur("duration", time.Since(start)).
			Msg("Nobody is playing")
		return out, nil
	}
	out.Winner = &winner

	c.setState(StateRendering)
	if err := c.render(winner); err != nil {
		return out, fmt.Errorf("cycle %s: %w", out.CycleID, err)
	}
	out.Rendered = true

	if c.journal != nil {
		if err := c.journal.Record(ctx, out.CycleID, winner, c.now()); err != nil {
			logger.Warn().Err(err).Msg("Failed to record render")
		}
	}

	event := logger.Debug()
	if !track.IsSameTrack(c.last, &winner) {
		event = logger.Info()
	}
	event.
		Str("listener", winner.Listener).
		Str("artist", winner.Artist).
		Str("title", winner.Title).
		Dur("duration", time.Since(start)).
		Msg("Rendered now playing track")
	c.last = &winner

	return out, nil
}

// render mounts the winner after the anchor and saves the page.
func (c *Controller) render(winner track.Record) error {
	doc := c.page.Document()

	if c.tmpl == nil {
		src, err := c.renderer.TemplateSource(doc)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		c.tmpl = render.Parse(src)
	}

	if err := c.renderer.Mount(doc, c.tmpl.Execute(winner)); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	if err := c.page.Save(); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	return nil
}

// Run renders once, then keeps refreshing every RefreshPeriod until ctx is
// done. A refresh that comes due while a cycle is still running is
// skipped. With no refresh period the first cycle's error is returned.
func (c *Controller) Run(ctx context.Context) error {
	if c.cfg.RefreshPeriod <= 0 {
		_, err := c.RunCycle(ctx)
		return err
	}

	c.logger.Info().
		Dur("refresh_period", c.cfg.RefreshPeriod).
		Strs("members", c.cfg.Members).
		Msg("Starting widget")

	var wg sync.WaitGroup
	defer wg.Wait()

	c.spawn(ctx, &wg)

	ticker := time.NewTicker(c.cfg.RefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Widget stopped")
			return ctx.Err()
		case <-ticker.C:
			c.spawn(ctx, &wg)
		}
	}
}

// spawn starts a cycle in the background unless one is already running.
func (c *Controller) spawn(ctx context.Context, wg *sync.WaitGroup) {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug().
			Str("state", c.State().String()).
			Msg("Previous cycle still running, skipping refresh")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer c.busy.Store(false)

		if _, err := c.runCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error().Err(err).Msg("Cycle failed")
		}
	}()
}
