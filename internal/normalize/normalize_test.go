package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmyers9/nowplaying/internal/track"
	"github.com/jfmyers9/nowplaying/pkg/lastfm"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func nowPlaying(artist, title string) lastfm.RecentTrack {
	return lastfm.RecentTrack{
		Artist: lastfm.Text{Text: artist},
		Album:  lastfm.Text{Text: "Album"},
		Name:   title,
		URL:    "https://www.last.fm/music/x",
		Images: []lastfm.Image{
			{Size: "small", URL: "s.png"},
			{Size: "medium", URL: "m.png"},
			{Size: "large", URL: "l.png"},
			{Size: "extralarge", URL: "xl.png"},
		},
		Attr: &lastfm.TrackAttr{NowPlaying: "true"},
	}
}

func TestNormalize_NowPlaying(t *testing.T) {
	n := New(fixedClock(2000))

	rec, err := n.Normalize("alice", &lastfm.RecentTracks{
		Tracks: []lastfm.RecentTrack{nowPlaying("Bruce Willis", "Respect Yourself")},
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "alice", rec.Listener)
	assert.Equal(t, "Bruce Willis", rec.Artist)
	assert.Equal(t, "Respect Yourself", rec.Title)
	assert.Equal(t, "Album", rec.Album)
	assert.True(t, rec.NowPlaying)

	ms, ok := rec.ObservedAtMillis()
	require.True(t, ok)
	assert.Equal(t, int64(2000), ms)

	assert.Equal(t, "s.png", rec.Images.Get(track.ImageSmall))
	assert.Equal(t, "xl.png", rec.Images.Get(track.ImageExtraLarge))
}

func TestNormalize_CompletedPlayHasNoObservation(t *testing.T) {
	n := New(fixedClock(2000))

	rec, err := n.Normalize("bob", &lastfm.RecentTracks{
		Tracks: []lastfm.RecentTrack{{
			Artist: lastfm.Text{Text: "Nina Simone"},
			Name:   "Sinnerman",
			Date:   &lastfm.Date{UTS: "1700000000"},
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.False(t, rec.NowPlaying)
	_, ok := rec.ObservedAtMillis()
	assert.False(t, ok, "completed plays must not carry an observation time")
	assert.Equal(t, int64(1700000000), rec.PlayedAt.Unix())
	assert.Empty(t, rec.Album)
}

func TestNormalize_PrefersNowPlayingEntry(t *testing.T) {
	n := New(fixedClock(1))

	completed := lastfm.RecentTrack{
		Artist: lastfm.Text{Text: "Old"},
		Name:   "Finished",
		Date:   &lastfm.Date{UTS: "1"},
	}
	rec, err := n.Normalize("carol", &lastfm.RecentTracks{
		Tracks: []lastfm.RecentTrack{completed, nowPlaying("New", "Playing")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Playing", rec.Title)
	assert.True(t, rec.NowPlaying)
}

func TestNormalize_EmptyHistory(t *testing.T) {
	rec, err := New(nil).Normalize("dave", &lastfm.RecentTracks{})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload *lastfm.RecentTracks
	}{
		{name: "nil payload", payload: nil},
		{name: "missing artist", payload: &lastfm.RecentTracks{Tracks: []lastfm.RecentTrack{{Name: "x"}}}},
		{name: "missing title", payload: &lastfm.RecentTracks{Tracks: []lastfm.RecentTrack{{Artist: lastfm.Text{Text: "x"}}}}},
		{name: "blank title", payload: &lastfm.RecentTracks{Tracks: []lastfm.RecentTrack{{Artist: lastfm.Text{Text: "x"}, Name: "  "}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := New(nil).Normalize("erin", tt.payload)
			assert.Nil(t, rec)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
			assert.Contains(t, err.Error(), "erin")
		})
	}
}

func TestNormalize_Images(t *testing.T) {
	tests := []struct {
		name string
		in   []lastfm.Image
		want track.Images
	}{
		{
			name: "missing tiers become empty",
			in:   []lastfm.Image{{Size: "large", URL: "l.png"}},
			want: track.Images{track.ImageSmall: "", track.ImageMedium: "", track.ImageLarge: "l.png", track.ImageExtraLarge: ""},
		},
		{
			name: "untagged entries use fixed order",
			in:   []lastfm.Image{{URL: "s.png"}, {URL: "m.png"}},
			want: track.Images{track.ImageSmall: "s.png", track.ImageMedium: "m.png", track.ImageLarge: "", track.ImageExtraLarge: ""},
		},
		{
			name: "unknown tiers ignored",
			in:   []lastfm.Image{{Size: "mega", URL: "mega.png"}, {Size: "small", URL: "s.png"}},
			want: track.Images{track.ImageSmall: "s.png", track.ImageMedium: "", track.ImageLarge: "", track.ImageExtraLarge: ""},
		},
		{
			name: "no images",
			in:   nil,
			want: track.Images{track.ImageSmall: "", track.ImageMedium: "", track.ImageLarge: "", track.ImageExtraLarge: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, images(tt.in))
		})
	}
}
