package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AmazonMusicResolver resolves Amazon Music links to track information via HTML scraping.
type AmazonMusicResolver struct {
	client *http.Client
}

// NewAmazonMusicResolver creates a new Amazon Music link resolver.
func NewAmazonMusicResolver() *AmazonMusicResolver {
	return &AmazonMusicResolver{
		client: newHTTPClient(),
	}
}

// Name identifies the provider in logs.
func (r *AmazonMusicResolver) Name() string {
	return "amazonmusic"
}

// CanResolve checks if the URL is an Amazon Music link on any regional domain
// (music.amazon.com, music.amazon.co.uk, music.amazon.in, ...).
func (r *AmazonMusicResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return strings.HasPrefix(strings.ToLower(u.Hostname()), "music.amazon.")
}

// Resolve extracts track information from an Amazon Music URL by scraping the HTML.
func (r *AmazonMusicResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not an Amazon Music URL")
	}

	if strings.Contains(rawURL, "/playlists/") || strings.Contains(rawURL, "/user-playlists/") {
		return nil, ErrNotTrackURL
	}

	html, err := fetchHTML(ctx, r.client, rawURL, "Amazon Music")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Amazon Music page: %w", err)
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

// extractTrackInfo pulls title and artist from the page. Pages read
// "Song Title by Artist Name on Amazon Music" in both OpenGraph tags
// and the <title> tag.
func (r *AmazonMusicResolver) extractTrackInfo(html string) (title, artist string, err error) {
	if title = metaProperty(html, "og:title"); title != "" {
		if desc := metaProperty(html, "og:description"); desc != "" {
			artist = splitByArtist(desc, " on Amazon Music")
		}
		return title, artist, nil
	}

	title, artist = splitTitleTag(html, " on Amazon Music", " by ")
	if title != "" {
		return title, artist, nil
	}

	return "", "", errors.New("could not extract track information from Amazon Music page")
}
