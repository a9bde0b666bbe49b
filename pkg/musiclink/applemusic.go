package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// iTunesLookupURL is the iTunes/Apple Music catalog lookup endpoint.
const iTunesLookupURL = "https://itunes.apple.com/lookup"

// iTunesLookupResponse represents the response from the iTunes lookup API.
type iTunesLookupResponse struct {
	ResultCount int                 `json:"resultCount"`
	Results     []iTunesTrackResult `json:"results"`
}

// iTunesTrackResult represents a track result from the iTunes API.
type iTunesTrackResult struct {
	TrackID    int64  `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	ISRC       string `json:"isrc"`
}

// AppleMusicResolver resolves Apple Music links via the iTunes lookup API.
type AppleMusicResolver struct {
	client *http.Client
}

// NewAppleMusicResolver creates a new Apple Music link resolver.
func NewAppleMusicResolver() *AppleMusicResolver {
	return &AppleMusicResolver{
		client: newHTTPClient(),
	}
}

func (r *AppleMusicResolver) Name() string {
	return "applemusic"
}

// CanResolve checks if the URL is an Apple Music link.
func (r *AppleMusicResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	// Both music.apple.com and legacy itunes.apple.com resolve through the
	// same catalog IDs.
	return hostname == "music.apple.com" || hostname == "itunes.apple.com"
}

// Resolve extracts track information from an Apple Music URL.
func (r *AppleMusicResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	trackID, err := r.extractTrackID(rawURL)
	if err != nil {
		return nil, err
	}

	trackData, err := r.fetchTrackData(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track data: %w", err)
	}

	return &TrackInfo{
		Title:  trackData.TrackName,
		Artist: trackData.ArtistName,
		ISRC:   trackData.ISRC,
	}, nil
}

// extractTrackID pulls the catalog track ID out of an Apple Music URL.
// Album URLs select a track with the ?i= query parameter; song URLs carry
// the ID as the last path segment.
func (r *AppleMusicResolver) extractTrackID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if trackID := u.Query().Get("i"); trackID != "" {
		return trackID, nil
	}

	if strings.Contains(u.Path, "/song/") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[len(parts)-1] != "" {
			return parts[len(parts)-1], nil
		}
	}

	// Playlists and albums without a track selector carry no single track.
	if strings.Contains(u.Path, "/playlist/") || strings.Contains(u.Path, "/album/") {
		return "", ErrNotTrackURL
	}

	return "", errors.New("no track ID found in Apple Music URL")
}

// fetchTrackData fetches track metadata from the iTunes lookup API.
func (r *AppleMusicResolver) fetchTrackData(ctx context.Context, trackID string) (*iTunesTrackResult, error) {
	reqURL := fmt.Sprintf("%s?id=%s&entity=song", iTunesLookupURL, trackID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("iTunes API returned status %d", resp.StatusCode)
	}

	var lookupResp iTunesLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookupResp); err != nil {
		return nil, fmt.Errorf("failed to decode iTunes API response: %w", err)
	}

	if lookupResp.ResultCount == 0 || len(lookupResp.Results) == 0 {
		return nil, errors.New("no track found in iTunes API response")
	}

	return &lookupResp.Results[0], nil
}
