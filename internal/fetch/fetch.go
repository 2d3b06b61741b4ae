// Package fetch issues one recent track request per listener and collects
// the normalized results of a cycle into a Batch.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/nowplaying/internal/normalize"
	"github.com/jfmyers9/nowplaying/internal/track"
	"github.com/jfmyers9/nowplaying/pkg/lastfm"
)

// Source returns a listener's most recent tracks.
type Source interface {
	RecentTracks(ctx context.Context, user string, limit int) (*lastfm.RecentTracks, error)
}

// LastFM adapts a lastfm.Client to Source.
type LastFM struct {
	client *lastfm.Client
}

// NewLastFM creates a Source backed by the Last.fm API.
func NewLastFM(client *lastfm.Client) *LastFM {
	return &LastFM{client: client}
}

// RecentTracks implements Source.
func (s *LastFM) RecentTracks(ctx context.Context, user string, limit int) (*lastfm.RecentTracks, error) {
	return s.client.User().GetRecentTracks(ctx, lastfm.RecentTracksParams{
		User:  user,
		Limit: limit,
	})
}

// Result is the settled outcome of one listener's request.
type Result struct {
	Listener string
	Index    int           // Position of the listener in the member list
	Record   *track.Record // nil on failure or empty history
	Err      error
	Elapsed  time.Duration
}

// Failed reports whether the request or its normalization failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Batch holds the requests launched for one cycle.
type Batch struct {
	id      uuid.UUID
	results []Result
	done    chan struct{}
}

// ID identifies the cycle the batch was launched for.
func (b *Batch) ID() uuid.UUID {
	return b.id
}

// Len returns the number of requests in the batch.
func (b *Batch) Len() int {
	return len(b.results)
}

// Done is closed once every request in the batch has settled.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Results returns the settled results in member order. It blocks until
// Done is closed.
func (b *Batch) Results() []Result {
	<-b.done
	out := make([]Result, len(b.results))
	copy(out, b.results)
	return out
}

// Fetcher launches per-listener requests.
type Fetcher struct {
	source      Source
	normalizer  *normalize.Normalizer
	maxInFlight int
	logger      zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxInFlight bounds the number of concurrent requests. Zero or less
// means one request per listener at once.
func WithMaxInFlight(n int) Option {
	return func(f *Fetcher) {
		f.maxInFlight = n
	}
}

// WithLogger sets the logger used for per-request debug logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger.With().Str("component", "fetcher").Logger()
	}
}

// New creates a Fetcher.
func New(source Source, normalizer *normalize.Normalizer, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:     source,
		normalizer: normalizer,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Launch starts one request per member and returns without waiting for
// any of them. Requests inherit ctx; cancelling it abandons the batch.
func (f *Fetcher) Launch(ctx context.Context, members []string) *Batch {
	b := &Batch{
		id:      uuid.New(),
		results: make([]Result, len(members)),
		done:    make(chan struct{}),
	}

	g := new(errgroup.Group)
	if f.maxInFlight > 0 {
		g.SetLimit(f.maxInFlight)
	}

	// g.Go blocks once the limit is reached, so scheduling happens off the
	// caller's goroutine.
	go func() {
		defer close(b.done)
		for i, member := range members {
			g.Go(func() error {
				b.results[i] = f.fetchOne(ctx, b.id, i, member)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return b
}

// fetchOne requests and normalizes one listener's most recent track.
func (f *Fetcher) fetchOne(ctx context.Context, cycleID uuid.UUID, index int, listener string) Result {
	start := time.Now()
	result := Result{Listener: listener, Index: index}

	payload, err := f.source.RecentTracks(ctx, listener, 1)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", listener, err)
	} else {
		result.Record, result.Err = f.normalizer.Normalize(listener, payload)
	}
	result.Elapsed = time.Since(start)

	f.logger.Debug().
		Str("cycle_id", cycleID.String()).
		Str("listener", listener).
		Dur("elapsed", result.Elapsed).
		Bool("ok", result.Err == nil).
		Msg("Listener request settled")

	return result
}
