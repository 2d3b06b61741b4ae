// Package aggregate joins a cycle's listener requests and picks the
// track to display.
package aggregate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/nowplaying/internal/fetch"
	"github.com/jfmyers9/nowplaying/internal/track"
)

// Join blocks until every request in batch has settled and returns the
// results in member order. Only batch's own requests are awaited.
func Join(ctx context.Context, batch *fetch.Batch) ([]fetch.Result, error) {
	select {
	case <-batch.Done():
		return batch.Results(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Candidates drops failed and empty results, keeping member order.
func Candidates(results []fetch.Result, logger zerolog.Logger) []track.Record {
	candidates := make([]track.Record, 0, len(results))
	for _, r := range results {
		switch {
		case r.Err != nil:
			logger.Warn().Err(r.Err).Str("listener", r.Listener).Msg("Excluding listener from cycle")
		case r.Record == nil:
			logger.Debug().Str("listener", r.Listener).Msg("Listener has no recent tracks")
		default:
			candidates = append(candidates, *r.Record)
		}
	}
	return candidates
}

// Select returns the now playing record with the latest observation time.
// Records without an observation time are never selected. On equal times
// the earlier candidate wins, so candidates must be in member order.
func Select(candidates []track.Record) (track.Record, bool) {
	var (
		winner track.Record
		best   int64
		found  bool
	)
	for _, c := range candidates {
		ms, ok := c.ObservedAtMillis()
		if !ok {
			continue
		}
		if !found || ms > best {
			winner, best, found = c, ms, true
		}
	}
	return winner, found
}
