package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Beatport renders the title tag with framework attributes, so the
// shared helper's bare <title> regex does not match.
var beatportTitleRegex = regexp.MustCompile(`<title[^>]*>([^<]+)</title>`)

// BeatportResolver resolves Beatport links to track information via HTML scraping.
type BeatportResolver struct {
	client *http.Client
}

// NewBeatportResolver creates a new Beatport link resolver.
func NewBeatportResolver() *BeatportResolver {
	return &BeatportResolver{
		client: newHTTPClient(),
	}
}

// Name identifies the provider in logs.
func (r *BeatportResolver) Name() string {
	return "beatport"
}

// CanResolve checks if the URL is a Beatport link.
func (r *BeatportResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	return hostname == "beatport.com" || hostname == "www.beatport.com"
}

// Resolve extracts track information from a Beatport URL by scraping the HTML.
func (r *BeatportResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a Beatport URL")
	}

	if strings.Contains(rawURL, "/chart/") || strings.Contains(rawURL, "/playlists/") {
		return nil, ErrNotTrackURL
	}
	if !strings.Contains(rawURL, "/track/") {
		return nil, ErrNotTrackURL
	}

	html, err := fetchHTML(ctx, r.client, rawURL, "Beatport")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Beatport page: %w", err)
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

// extractTrackInfo pulls title and artist out of the page. The <title>
// tag is the most reliable source on Beatport; OpenGraph is the fallback.
func (r *BeatportResolver) extractTrackInfo(html string) (title, artist string, err error) {
	title, artist = r.extractFromTitleTag(html)
	if title != "" {
		return title, artist, nil
	}

	if title = metaProperty(html, "og:title"); title != "" {
		if desc := metaProperty(html, "og:description"); desc != "" {
			artist = splitByArtist(desc, "")
		}
		return title, artist, nil
	}

	return "", "", errors.New("could not extract track information from Beatport page")
}

// extractFromTitleTag parses Beatport's "Artist1, Artist2 - Track Title
// [Label] | Music & Downloads on Beatport" title format. Artists come
// first, so the split is the reverse of most providers.
func (r *BeatportResolver) extractFromTitleTag(html string) (title, artist string) {
	matches := beatportTitleRegex.FindStringSubmatch(html)
	if len(matches) < splitParts {
		return "", ""
	}

	titleText := matches[1]
	if idx := strings.Index(titleText, " | "); idx != -1 {
		titleText = titleText[:idx]
	}
	titleText = strings.TrimSpace(titleText)

	if !strings.Contains(titleText, " - ") {
		return "", ""
	}

	parts := strings.SplitN(titleText, " - ", splitParts)
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
}
