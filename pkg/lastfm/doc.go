// Package lastfm provides a read-only client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements the parts of the Last.fm API needed to watch what
// a set of users are listening to. It uses the JSON response format, takes a
// context.Context on every call and returns structured errors.
//
// # Quick Start
//
// Create a client with your API key:
//
//	import "github.com/jfmyers9/nowplaying/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey: "your-api-key",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Recent Tracks
//
// user.getRecentTracks returns a user's most recent plays. When the user is
// listening to something right now, the first track carries a now playing
// marker and has no date:
//
//	recent, err := client.User().GetRecentTracks(ctx, lastfm.RecentTracksParams{
//	    User:  "rj",
//	    Limit: 1,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range recent.Tracks {
//	    fmt.Println(t.Artist.Text, "-", t.Name, t.NowPlaying())
//	}
//
// # Error Handling
//
// Errors reported by Last.fm are returned as *Error:
//
//	_, err := client.User().GetRecentTracks(ctx, params)
//	var lastfmErr *lastfm.Error
//	if errors.As(err, &lastfmErr) && lastfmErr.Code == lastfm.ErrCodeInvalidParameters {
//	    // unknown user
//	}
//
// # Configuration
//
// The client can be configured with custom HTTP clients, base URLs (for
// testing), retries for temporary failures and optional loggers:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:     "your-api-key",
//	    HTTPClient: &http.Client{Timeout: 5 * time.Second},
//	    MaxRetries: 2,
//	    Logger:     myLogger, // Implements lastfm.Logger interface
//	})
//
// # API Coverage
//
// Currently implemented:
//   - user.getRecentTracks
//
// # Last.fm API Documentation
//
// https://www.last.fm/api/show/user.getRecentTracks
package lastfm
