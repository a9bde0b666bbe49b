package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SoundCloudOEmbedURL is the SoundCloud oEmbed API endpoint.
const SoundCloudOEmbedURL = "https://soundcloud.com/oembed"

// SoundCloudOEmbedResponse represents the response from SoundCloud's oEmbed API.
type SoundCloudOEmbedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
}

// SoundCloudResolver resolves SoundCloud links to track information.
type SoundCloudResolver struct {
	client *http.Client
}

// NewSoundCloudResolver creates a new SoundCloud link resolver.
func NewSoundCloudResolver() *SoundCloudResolver {
	return &SoundCloudResolver{
		client: newHTTPClient(),
	}
}

// Name identifies the provider in logs.
func (r *SoundCloudResolver) Name() string {
	return "soundcloud"
}

// CanResolve checks if the URL is a SoundCloud link.
func (r *SoundCloudResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	// Support main, mobile, and short link domains.
	switch strings.ToLower(u.Hostname()) {
	case "soundcloud.com", "www.soundcloud.com", "m.soundcloud.com", "on.soundcloud.com":
		return true
	}
	return false
}

// Resolve extracts track information from a SoundCloud URL using the oEmbed API.
func (r *SoundCloudResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a SoundCloud URL")
	}

	// Sets are SoundCloud's playlists.
	if strings.Contains(rawURL, "/sets/") {
		return nil, ErrNotTrackURL
	}

	var oembedResp SoundCloudOEmbedResponse
	if err := fetchOEmbedJSON(ctx, r.client, SoundCloudOEmbedURL, rawURL, &oembedResp); err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}

	title, artist := r.parseTrackInfo(&oembedResp)

	return &TrackInfo{
		Title:  title,
		Artist: artist,
	}, nil
}

// parseTrackInfo extracts title and artist from the oEmbed response.
// SoundCloud titles typically read "Track Title by Artist Name".
func (r *SoundCloudResolver) parseTrackInfo(resp *SoundCloudOEmbedResponse) (title, artist string) {
	if strings.Contains(resp.Title, " by ") {
		parts := strings.SplitN(resp.Title, " by ", splitParts)
		if len(parts) == splitParts {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}

	// Fallback: full title as track name, uploader as artist.
	return strings.TrimSpace(resp.Title), strings.TrimSpace(resp.AuthorName)
}
