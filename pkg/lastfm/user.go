package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// UserService provides user operations for the Last.fm API.
type UserService struct {
	client *Client
}

// RecentTracksParams are the parameters of user.getRecentTracks.
type RecentTracksParams struct {
	User  string // Required: Last.fm username
	Limit int    // Optional: number of tracks to return (Last.fm default 50, max 200)
	Page  int    // Optional: page number
}

// GetRecentTracks returns the most recent tracks of a user.
//
// A track the user is listening to right now comes first and reports
// NowPlaying() == true. It carries no Date.
//
// Example:
//
//	recent, err := client.User().GetRecentTracks(ctx, lastfm.RecentTracksParams{
//	    User:  "rj",
//	    Limit: 1,
//	})
//	if err != nil {
//	    log.Printf("Failed to get recent tracks: %v", err)
//	}
func (s *UserService) GetRecentTracks(ctx context.Context, params RecentTracksParams) (*RecentTracks, error) {
	if params.User == "" {
		return nil, fmt.Errorf("lastfm: user is required")
	}

	query := map[string]string{
		"user":     params.User,
		"extended": "0",
	}
	if params.Limit > 0 {
		query["limit"] = strconv.Itoa(params.Limit)
	}
	if params.Page > 0 {
		query["page"] = strconv.Itoa(params.Page)
	}

	body, err := s.client.get(ctx, "user.getRecentTracks", query)
	if err != nil {
		return nil, err
	}

	recent, err := unmarshalRecentTracks(body)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse recent tracks response: %w", err)
	}
	if recent.User == "" {
		recent.User = params.User
	}

	return recent, nil
}

// unmarshalRecentTracks parses the JSON response from user.getRecentTracks.
func unmarshalRecentTracks(data []byte) (*RecentTracks, error) {
	var resp recentTracksResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recent tracks: %w", err)
	}
	if resp.RecentTracks == nil {
		return nil, fmt.Errorf("%w: missing recenttracks", ErrUnexpectedResponse)
	}

	total := 0
	if resp.RecentTracks.Attr.Total != "" {
		total, _ = strconv.Atoi(resp.RecentTracks.Attr.Total)
	}

	return &RecentTracks{
		User:   resp.RecentTracks.Attr.User,
		Total:  total,
		Tracks: resp.RecentTracks.Track,
	}, nil
}
