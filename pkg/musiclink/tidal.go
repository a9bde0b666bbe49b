package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TidalResolver resolves Tidal links to track information via HTML scraping.
type TidalResolver struct {
	client *http.Client
}

// NewTidalResolver creates a new Tidal link resolver.
func NewTidalResolver() *TidalResolver {
	return &TidalResolver{
		client: newHTTPClient(),
	}
}

// Name identifies the provider in logs.
func (r *TidalResolver) Name() string {
	return "tidal"
}

// CanResolve checks if the URL is a Tidal link.
func (r *TidalResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	return hostname == "tidal.com" || hostname == "www.tidal.com" || hostname == "listen.tidal.com"
}

// Resolve extracts track information from a Tidal URL by scraping the HTML.
func (r *TidalResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a Tidal URL")
	}

	if strings.Contains(rawURL, "/playlist/") || strings.Contains(rawURL, "/mix/") {
		return nil, ErrNotTrackURL
	}
	if !strings.Contains(rawURL, "/track/") {
		return nil, ErrNotTrackURL
	}

	html, err := fetchHTML(ctx, r.client, rawURL, "Tidal")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Tidal page: %w", err)
	}

	title, artist, err := r.extractTrackInfo(html)
	if err != nil {
		return nil, err
	}

	return &TrackInfo{
		Title:  title,
		Artist: artist,
	}, nil
}

// extractTrackInfo pulls title and artist out of the page, preferring
// OpenGraph tags over the <title> fallback.
func (r *TidalResolver) extractTrackInfo(html string) (title, artist string, err error) {
	title = metaProperty(html, "og:title")
	if title != "" {
		// og:description often reads "Listen to <title> by <artist> on TIDAL".
		if desc := metaProperty(html, "og:description"); desc != "" {
			artist = splitByArtist(desc, " on TIDAL")
		}
		return title, artist, nil
	}

	// Title tag format is "Track Title – Artist Name | TIDAL" or hyphenated.
	title, artist = splitTitleTag(html, " | TIDAL", " – ")
	if title != "" && artist == "" {
		title, artist = splitTitleTag(html, " | TIDAL", " - ")
	}
	if title != "" {
		return title, artist, nil
	}

	return "", "", errors.New("could not extract track information from Tidal page")
}
