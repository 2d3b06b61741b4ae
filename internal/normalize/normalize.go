// Package normalize turns raw Last.fm recent track payloads into
// track records.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jfmyers9/nowplaying/internal/track"
	"github.com/jfmyers9/nowplaying/pkg/lastfm"
)

// ErrMalformed is returned when a payload lacks fields every record needs.
var ErrMalformed = errors.New("malformed payload")

// Normalizer converts payloads to records, stamping now playing records
// with the client clock.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer. A nil clock uses time.Now.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize converts one listener's payload into at most one record.
//
// An empty history yields (nil, nil). The now playing entry is preferred
// when Last.fm returns it alongside the last completed play.
func (n *Normalizer) Normalize(listener string, payload *lastfm.RecentTracks) (*track.Record, error) {
	if payload == nil {
		return nil, fmt.Errorf("%s: %w: no payload", listener, ErrMalformed)
	}
	if len(payload.Tracks) == 0 {
		return nil, nil
	}

	raw := payload.Tracks[0]
	for _, t := range payload.Tracks {
		if t.NowPlaying() {
			raw = t
			break
		}
	}

	artist := strings.TrimSpace(raw.Artist.Text)
	title := strings.TrimSpace(raw.Name)
	if artist == "" {
		return nil, fmt.Errorf("%s: %w: missing artist", listener, ErrMalformed)
	}
	if title == "" {
		return nil, fmt.Errorf("%s: %w: missing track name", listener, ErrMalformed)
	}

	rec := &track.Record{
		Listener:   listener,
		Artist:     artist,
		Album:      strings.TrimSpace(raw.Album.Text),
		Title:      title,
		URL:        raw.URL,
		Images:     images(raw.Images),
		NowPlaying: raw.NowPlaying(),
	}

	if rec.NowPlaying {
		// Last.fm sends no timestamp for a play in progress.
		rec.ObservedAt = n.now()
	} else if played, ok := raw.Date.Time(); ok {
		rec.PlayedAt = played
	}

	return rec, nil
}

// images maps the payload's image list onto size tiers. Entries are matched
// by their size tag; untagged entries fall back to Last.fm's fixed order
// (small, medium, large, extralarge). Missing tiers map to "".
func images(list []lastfm.Image) track.Images {
	out := make(track.Images, len(track.ImageSizes))
	for _, size := range track.ImageSizes {
		out[size] = ""
	}

	for i, img := range list {
		size, ok := track.ParseImageSize(img.Size)
		if !ok {
			if img.Size != "" || i >= len(track.ImageSizes) {
				continue
			}
			size = track.ImageSizes[i]
		}
		out[size] = strings.TrimSpace(img.URL)
	}

	return out
}
