package lastfm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RecentTracks is the result of user.getRecentTracks.
type RecentTracks struct {
	User   string        // Username the tracks belong to
	Total  int           // Total number of plays in the user's history
	Tracks []RecentTrack // Most recent first; a now playing track comes first
}

// RecentTrack is one entry of a user's recent track history.
type RecentTrack struct {
	Artist     Text       `json:"artist"`
	Album      Text       `json:"album"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	MBID       string     `json:"mbid"`
	Streamable string     `json:"streamable"`
	Images     []Image    `json:"image"`
	Attr       *TrackAttr `json:"@attr,omitempty"`
	Date       *Date      `json:"date,omitempty"`
}

// NowPlaying reports whether Last.fm flagged the track as currently playing.
func (t RecentTrack) NowPlaying() bool {
	return t.Attr != nil && strings.EqualFold(strings.TrimSpace(t.Attr.NowPlaying), "true")
}

// Text is Last.fm's {"#text": ..., "mbid": ...} object.
type Text struct {
	Text string `json:"#text"`
	MBID string `json:"mbid"`
}

// Image is an image URL for one size tier. URL may be empty.
type Image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

// TrackAttr holds the @attr object of a recent track.
type TrackAttr struct {
	NowPlaying string `json:"nowplaying"`
}

// Date is the completed-play timestamp of a recent track.
type Date struct {
	UTS  string `json:"uts"`
	Text string `json:"#text"`
}

// Time parses the Unix timestamp. ok is false when it is missing or invalid.
func (d *Date) Time() (t time.Time, ok bool) {
	if d == nil || d.UTS == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(d.UTS, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// recentTracksResponse is the JSON envelope of user.getRecentTracks.
type recentTracksResponse struct {
	RecentTracks *struct {
		Track trackList `json:"track"`
		Attr  struct {
			User  string `json:"user"`
			Total string `json:"total"`
		} `json:"@attr"`
	} `json:"recenttracks"`
}

// trackList accepts both a JSON array and a single object; Last.fm
// collapses one-element lists into a bare object.
type trackList []RecentTrack

func (l *trackList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '{' {
		var single RecentTrack
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = trackList{single}
		return nil
	}

	var many []RecentTrack
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}
