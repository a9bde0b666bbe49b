package musiclink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// YouTubeOEmbedURL is the YouTube oEmbed API endpoint.
const YouTubeOEmbedURL = "https://www.youtube.com/oembed"

// videoTitleNoise matches the video-specific decorations YouTube uploaders
// append to track titles.
var videoTitleNoise = regexp.MustCompile(`(?i)\s*[\(\[](?:official\s+)?(?:music\s+)?(?:video|audio|lyric video|lyrics|visualizer|hd|4k)[\)\]]`)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// YouTubeOEmbedResponse represents the response from YouTube's oEmbed API.
type YouTubeOEmbedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// YouTubeResolver resolves YouTube and YouTube Music links to track information.
type YouTubeResolver struct {
	client *http.Client
}

// NewYouTubeResolver creates a new YouTube link resolver.
func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{
		client: newHTTPClient(),
	}
}

func (r *YouTubeResolver) Name() string {
	return "youtube"
}

// CanResolve checks if the URL is a YouTube or YouTube Music link.
func (r *YouTubeResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// Resolve extracts track information from a YouTube URL using the oEmbed API.
func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	videoID, err := r.extractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	var oembedResp YouTubeOEmbedResponse
	if err := fetchOEmbedJSON(ctx, r.client, YouTubeOEmbedURL, videoURL, &oembedResp); err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}

	title := r.cleanTitle(oembedResp.Title)
	artist := r.extractArtist(title, oembedResp.AuthorName)

	return &TrackInfo{
		Title:  title,
		Artist: artist,
	}, nil
}

// extractVideoID extracts the YouTube video ID from the supported URL shapes.
func (r *YouTubeResolver) extractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	hostname := strings.ToLower(u.Hostname())

	// youtu.be short links carry the ID in the path.
	if hostname == "youtu.be" {
		path := strings.Trim(u.Path, "/")
		if path == "" {
			return "", fmt.Errorf("no video ID in youtu.be URL")
		}
		return path, nil
	}

	// Shorts carry the ID as the last path segment.
	if strings.HasPrefix(u.Path, "/shorts/") {
		id := strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
		if id != "" {
			return id, nil
		}
	}

	videoID := u.Query().Get("v")
	if videoID == "" {
		// A list= without a video is a playlist page, not a track.
		if u.Query().Get("list") != "" || strings.HasPrefix(u.Path, "/playlist") {
			return "", ErrNotTrackURL
		}
		return "", fmt.Errorf("no video ID in YouTube URL")
	}
	return videoID, nil
}

// cleanTitle strips video-specific decorations from an uploaded title.
func (r *YouTubeResolver) cleanTitle(title string) string {
	cleaned := videoTitleNoise.ReplaceAllString(title, "")
	return strings.TrimSpace(cleaned)
}

// extractArtist guesses the artist from the channel name or the title.
// VEVO and auto-generated Topic channels are named after the artist.
func (r *YouTubeResolver) extractArtist(title, authorName string) string {
	if strings.HasSuffix(authorName, "VEVO") {
		artist := strings.TrimSuffix(authorName, "VEVO")
		return camelBoundary.ReplaceAllString(artist, "$1 $2")
	}

	if strings.HasSuffix(authorName, " - Topic") {
		return strings.TrimSuffix(authorName, " - Topic")
	}

	// "Artist - Song Title" is the dominant uploader convention.
	if strings.Contains(title, " - ") {
		parts := strings.SplitN(title, " - ", splitParts)
		if len(parts) == splitParts {
			return strings.TrimSpace(parts[0])
		}
	}

	return authorName
}
