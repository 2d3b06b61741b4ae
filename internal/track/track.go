package track

import (
	"time"
)

// ImageSize is a Last.fm image size tier.
type ImageSize int

const (
	ImageSmall      ImageSize = iota // 34px
	ImageMedium                      // 64px
	ImageLarge                       // 174px
	ImageExtraLarge                  // 300px
)

// ImageSizes lists the tiers in the order Last.fm returns them.
var ImageSizes = []ImageSize{ImageSmall, ImageMedium, ImageLarge, ImageExtraLarge}

// String returns the Last.fm name of the tier.
func (s ImageSize) String() string {
	switch s {
	case ImageSmall:
		return "small"
	case ImageMedium:
		return "medium"
	case ImageLarge:
		return "large"
	case ImageExtraLarge:
		return "extralarge"
	default:
		return "unknown"
	}
}

// ParseImageSize maps a Last.fm size name to its tier.
func ParseImageSize(name string) (ImageSize, bool) {
	for _, s := range ImageSizes {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Images maps a size tier to an image URL. An empty URL means no image.
type Images map[ImageSize]string

// Get returns the URL for a tier, or "" when the tier is absent.
func (i Images) Get(size ImageSize) string {
	if i == nil {
		return ""
	}
	return i[size]
}

// Record is one observed track for one listener during one cycle.
// Records are built by the normalizer and not modified afterwards.
type Record struct {
	Listener string // Last.fm username the record was observed for
	Artist   string
	Album    string // Empty when the track has no album metadata
	Title    string
	URL      string // Canonical Last.fm track page
	Images   Images

	NowPlaying bool      // Last.fm flagged the track as playing at request time
	ObservedAt time.Time // Client clock at observation; zero unless NowPlaying
	PlayedAt   time.Time // Upstream completed-play time, informational only
}

// ObservedAtMillis returns ObservedAt as Unix milliseconds, and false when
// the record has no observation time.
func (r Record) ObservedAtMillis() (int64, bool) {
	if !r.NowPlaying || r.ObservedAt.IsZero() {
		return 0, false
	}
	return r.ObservedAt.UnixMilli(), true
}

// IsSameTrack compares two records by artist, title and album.
func IsSameTrack(a, b *Record) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Artist == b.Artist &&
		a.Title == b.Title &&
		a.Album == b.Album
}
