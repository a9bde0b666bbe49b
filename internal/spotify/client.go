// Package spotify wraps the Spotify Web API surface the sync needs:
// playlist reads, batch mutations, track search and detail lookups.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"vibesync/internal/core"
	"vibesync/pkg/text"
)

const (
	// PageLimit is the playlist items page size.
	PageLimit = 100
	// DetailBatchLimit is the GetTracks lookup batch size the API allows.
	DetailBatchLimit = 50
	// MaxSearchResults caps candidates handed to the resolver.
	MaxSearchResults = 10
	// TokenFilePermission keeps the cached OAuth token private.
	TokenFilePermission = 0600
)

var (
	spotifyTrackRegex = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/track/([a-zA-Z0-9]+)`)
	spotifyURIRegex   = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	spotifyPageRegex  = regexp.MustCompile(`https://open\.spotify\.com/track/[a-zA-Z0-9]+`)
)

// ErrNotAuthenticated means no usable cached token was found; `vibesync
// auth` bootstraps one interactively.
var ErrNotAuthenticated = errors.New("no valid Spotify token; run `vibesync auth`")

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

// Authenticate loads the cached token and verifies it. A cron run never
// prompts: a missing or invalid token is a fatal setup error.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	client := spotify.New(c.auth.Client(ctx, token), spotify.WithRetry(true))

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("cached Spotify token rejected: %w", err)
	}

	c.client = client
	c.logger.Info("authenticated", zap.String("user", user.DisplayName))
	return nil
}

// InteractiveAuth runs the one-time OAuth bootstrap and writes the token
// cache consumed by scheduled runs.
func (c *Client) InteractiveAuth(ctx context.Context) error {
	state := "vibesync-auth-state"
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := c.saveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	client := spotify.New(c.auth.Client(ctx, token), spotify.WithRetry(true))
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.client = client
	c.logger.Info("OAuth flow completed", zap.String("user", user.DisplayName))
	return nil
}

// GetPlaylistTracks fetches the full ordered playlist contents, paging
// at the API limit. This is the only source of current playlist state;
// nothing is cached across runs.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string) ([]string, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	var allTrackIDs []string
	offset := 0

	for {
		items, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(PageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}

		for i := range items.Items {
			// Episodes and removed tracks come back as null items.
			if items.Items[i].Track.Track != nil {
				allTrackIDs = append(allTrackIDs, string(items.Items[i].Track.Track.ID))
			}
		}

		if len(items.Items) < PageLimit {
			break
		}
		offset += PageLimit
	}

	c.logger.Debug("retrieved playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(allTrackIDs)))

	return allTrackIDs, nil
}

// GetTracks looks up display metadata for the given IDs, batched at the
// API's lookup limit. Unknown IDs are skipped, not errors.
func (c *Client) GetTracks(ctx context.Context, ids []string) ([]core.Track, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	tracks := make([]core.Track, 0, len(ids))

	for start := 0; start < len(ids); start += DetailBatchLimit {
		end := start + DetailBatchLimit
		if end > len(ids) {
			end = len(ids)
		}

		batch := make([]spotify.ID, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		full, err := c.client.GetTracks(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to get track details: %w", err)
		}

		for _, t := range full {
			if t == nil {
				continue
			}
			tracks = append(tracks, convertTrack(t))
		}
	}

	return tracks, nil
}

func (c *Client) SearchTrack(ctx context.Context, query string) ([]core.Track, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(MaxSearchResults))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]core.Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, convertTrack(&results.Tracks.Tracks[i]))
	}

	return tracks, nil
}

// AddTracks appends the given tracks to the end of the playlist. Callers
// are responsible for chunking at the mutation batch limit.
func (c *Client) AddTracks(ctx context.Context, playlistID string, ids ...string) error {
	if c.client == nil {
		return ErrNotAuthenticated
	}

	_, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toSpotifyIDs(ids)...)
	if err != nil {
		return fmt.Errorf("failed to add tracks: %w", err)
	}

	c.logger.Debug("tracks added", zap.String("playlistID", playlistID), zap.Int("count", len(ids)))
	return nil
}

// RemoveTracks removes every occurrence of the given tracks.
func (c *Client) RemoveTracks(ctx context.Context, playlistID string, ids ...string) error {
	if c.client == nil {
		return ErrNotAuthenticated
	}

	_, err := c.client.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), toSpotifyIDs(ids)...)
	if err != nil {
		return fmt.Errorf("failed to remove tracks: %w", err)
	}

	c.logger.Debug("tracks removed", zap.String("playlistID", playlistID), zap.Int("count", len(ids)))
	return nil
}

// Reorder moves the single track at rangeStart so it sits before the
// track currently at insertBefore.
func (c *Client) Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore int) error {
	if c.client == nil {
		return ErrNotAuthenticated
	}

	_, err := c.client.ReorderPlaylistTracks(ctx, spotify.ID(playlistID), spotify.PlaylistReorderOptions{
		RangeStart:   rangeStart,
		RangeLength:  1,
		InsertBefore: insertBefore,
	})
	if err != nil {
		return fmt.Errorf("failed to reorder tracks: %w", err)
	}

	c.logger.Debug("track reordered",
		zap.String("playlistID", playlistID),
		zap.Int("from", rangeStart),
		zap.Int("insertBefore", insertBefore))
	return nil
}

// ExtractTrackID pulls the track ID out of a Spotify URL or URI,
// following redirects for spotify.link / app-link short URLs.
func (c *Client) ExtractTrackID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)

	if matches := spotifyURIRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	if matches := spotifyTrackRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "spotify.link" || hostname == text.SpotifyAppLinkDomain {
		resolvedURL, err := c.resolveShortURL(rawURL)
		if err != nil {
			return "", fmt.Errorf("failed to resolve shortened URL: %w", err)
		}
		return c.ExtractTrackID(resolvedURL)
	}

	return "", fmt.Errorf("no track ID found in URL")
}

// IsTransient reports whether an API error is worth retrying: rate
// limits, server errors and network hiccups. Everything else (bad IDs,
// revoked auth, missing playlist) fails the call immediately.
func IsTransient(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF)
}

// resolveShortURL follows a short link's redirect chain looking for an
// open.spotify.com track URL.
func (c *Client) resolveShortURL(shortURL string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), text.URLResolveTimeout)
	defer cancel()

	client := &http.Client{
		Timeout: text.URLResolveTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= text.MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()

	u, err := url.Parse(finalURL)
	if err != nil {
		return "", err
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "open.spotify.com" && strings.Contains(u.Path, "/track/") {
		return finalURL, nil
	}

	// App-link pages embed the track URL in the HTML instead of the
	// redirect chain.
	if hostname == text.SpotifyAppLinkDomain {
		return c.resolveWithPageContent(shortURL)
	}

	return "", fmt.Errorf("URL did not resolve to a Spotify track")
}

// resolveWithPageContent fetches the landing page and scans it for an
// embedded track URL.
func (c *Client) resolveWithPageContent(shortURL string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), text.URLResolveTimeout)
	defer cancel()

	client := &http.Client{Timeout: text.URLResolveTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, text.ReadBufferSize))
	if err != nil {
		return "", err
	}

	if match := spotifyPageRegex.FindString(string(content)); match != "" {
		return match, nil
	}

	return "", fmt.Errorf("could not find Spotify track URL in page content")
}

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (c *Client) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.config.TokenPath)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, errors.New("token cache is empty")
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(TokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, TokenFilePermission)
}

func convertTrack(track *spotify.FullTrack) core.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return core.Track{
		ID:     string(track.ID),
		Title:  track.Name,
		Artist: strings.Join(artists, ", "),
		Album:  track.Album.Name,
		URL:    track.ExternalURLs["spotify"],
	}
}

func toSpotifyIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}
