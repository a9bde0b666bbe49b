// Package musiclink resolves foreign music-service links to the display
// metadata (title, artist) needed to find the equivalent track on Spotify.
package musiclink

import (
	"context"
	"errors"
)

// TrackInfo holds the display metadata extracted from a music provider page.
type TrackInfo struct {
	Title  string // Track title.
	Artist string // Artist name(s).
	ISRC   string // International Standard Recording Code (if available).
}

// ErrNotTrackURL marks URLs a resolver recognizes but that do not point at a
// single track (playlists, sets, charts, albums without a track selector).
var ErrNotTrackURL = errors.New("not a single-track URL")

// Resolver extracts track metadata from one provider's URLs.
type Resolver interface {
	// Name identifies the provider in logs and issue reports.
	Name() string

	// CanResolve checks if this resolver handles the given URL.
	CanResolve(url string) bool

	// Resolve extracts track information from a provider URL.
	Resolve(ctx context.Context, url string) (*TrackInfo, error)
}
