// Package text scans exported chat text for music-service links and
// classifies them for the sync pipeline.
package text

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"vibesync/internal/core"
)

const (
	// URLResolveTimeout bounds short-link redirect resolution.
	URLResolveTimeout = 10 * time.Second
	// MaxRedirects caps redirect chains when resolving short links.
	MaxRedirects = 5
	// ReadBufferSize is how much of a short-link landing page is read
	// when the redirect chain alone does not yield a track URL.
	ReadBufferSize = 64 * 1024
	// SpotifyIDLength is the length of a base62 Spotify track ID.
	SpotifyIDLength = 22
	// SpotifyAppLinkDomain serves Spotify's app-link short URLs.
	SpotifyAppLinkDomain = "spotify.app.link"
)

var (
	// linkRegex matches both http(s) URLs and bare spotify: URIs in a
	// single forward pass, so within-message order is preserved.
	linkRegex = regexp.MustCompile(`https?://\S+|spotify:track:[a-zA-Z0-9]+`)

	spotifyTrackPathRegex = regexp.MustCompile(`/track/([a-zA-Z0-9]{22})`)
	spotifyURIRegex       = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]{22})$`)

	trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si"}
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ExtractLinks scans raw chat text and returns the recognized music links
// in first-seen order. Position is the index within the returned slice.
// Duplicate links (same track or same cleaned URL) keep their first
// occurrence only; non-music URLs are dropped silently.
func (p *Parser) ExtractLinks(text string) []core.ChatLink {
	text = norm.NFKC.String(text)

	var links []core.ChatLink
	seen := make(map[string]struct{})

	for _, match := range linkRegex.FindAllString(text, -1) {
		link, ok := p.classify(match)
		if !ok {
			continue
		}

		key := dedupKey(link)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		link.Position = len(links)
		links = append(links, link)
	}

	return links
}

// dedupKey makes two links to the same underlying track compare equal:
// native links by track ID, everything else by cleaned URL.
func dedupKey(l core.ChatLink) string {
	if l.TrackID != "" {
		return "spotify:" + l.TrackID
	}
	return l.CleanURL
}

func (p *Parser) classify(raw string) (core.ChatLink, bool) {
	if m := spotifyURIRegex.FindStringSubmatch(raw); len(m) > 1 {
		return core.ChatLink{
			Platform: core.PlatformNative,
			Service:  "spotify",
			RawURL:   raw,
			CleanURL: raw,
			TrackID:  m[1],
		}, true
	}

	cleaned := CleanURL(raw)
	if cleaned == "" {
		return core.ChatLink{}, false
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return core.ChatLink{}, false
	}

	host := canonicalHost(u.Hostname())

	switch host {
	case "open.spotify.com", "spotify.com":
		if m := spotifyTrackPathRegex.FindStringSubmatch(u.Path); len(m) > 1 {
			return core.ChatLink{
				Platform: core.PlatformNative,
				Service:  "spotify",
				RawURL:   raw,
				CleanURL: cleaned,
				TrackID:  m[1],
			}, true
		}
		// Playlist, album and artist links on the native service are not
		// track shares; ignore them like any non-music URL.
		return core.ChatLink{}, false

	case "spotify.link", SpotifyAppLinkDomain:
		// Short links hide the track ID behind a redirect; resolved later.
		return core.ChatLink{
			Platform: core.PlatformNative,
			Service:  "spotify",
			RawURL:   raw,
			CleanURL: cleaned,
		}, true

	case "youtube.com", "youtu.be", "music.youtube.com":
		return p.classifyYouTube(raw, cleaned, u)

	case "music.apple.com", "itunes.apple.com":
		return p.classifyAppleMusic(raw, cleaned, u)

	case "soundcloud.com", "on.soundcloud.com":
		if strings.Contains(u.Path, "/sets/") {
			return foreignPlaylist(raw, cleaned, "soundcloud"), true
		}
		return foreign(raw, cleaned, "soundcloud"), true

	case "tidal.com", "listen.tidal.com":
		if strings.Contains(u.Path, "/playlist/") || strings.Contains(u.Path, "/mix/") {
			return foreignPlaylist(raw, cleaned, "tidal"), true
		}
		return foreign(raw, cleaned, "tidal"), true

	case "beatport.com":
		if strings.Contains(u.Path, "/chart/") || strings.Contains(u.Path, "/playlists/") {
			return foreignPlaylist(raw, cleaned, "beatport"), true
		}
		return foreign(raw, cleaned, "beatport"), true

	case "music.amazon.com", "amazon.com":
		if strings.Contains(u.Path, "/playlists/") || strings.Contains(u.Path, "/user-playlists/") {
			return foreignPlaylist(raw, cleaned, "amazonmusic"), true
		}
		if host == "amazon.com" && !strings.Contains(u.Path, "/music/") {
			return core.ChatLink{}, false
		}
		return foreign(raw, cleaned, "amazonmusic"), true
	}

	return core.ChatLink{}, false
}

// classifyYouTube sorts YouTube URLs into tracks and playlists. A list=
// parameter without a video ID is a playlist page, not a track.
func (p *Parser) classifyYouTube(raw, cleaned string, u *url.URL) (core.ChatLink, bool) {
	host := canonicalHost(u.Hostname())

	if host == "youtu.be" {
		if strings.Trim(u.Path, "/") == "" {
			return core.ChatLink{}, false
		}
		return foreign(raw, cleaned, "youtube"), true
	}

	q := u.Query()
	hasVideo := q.Get("v") != "" || strings.HasPrefix(u.Path, "/shorts/")

	if strings.HasPrefix(u.Path, "/playlist") || (q.Get("list") != "" && !hasVideo) {
		return foreignPlaylist(raw, cleaned, "youtube"), true
	}

	if !hasVideo {
		return core.ChatLink{}, false
	}

	return foreign(raw, cleaned, "youtube"), true
}

// classifyAppleMusic sorts Apple Music URLs. Album URLs only count as a
// track when the ?i= selector names one; playlist URLs are flagged.
func (p *Parser) classifyAppleMusic(raw, cleaned string, u *url.URL) (core.ChatLink, bool) {
	if strings.Contains(u.Path, "/playlist/") {
		return foreignPlaylist(raw, cleaned, "applemusic"), true
	}

	if strings.Contains(u.Path, "/song/") {
		return foreign(raw, cleaned, "applemusic"), true
	}

	if strings.Contains(u.Path, "/album/") {
		if u.Query().Get("i") == "" {
			// An album without a track selector is not a single track;
			// treat it like a playlist share.
			return foreignPlaylist(raw, cleaned, "applemusic"), true
		}
		return foreign(raw, cleaned, "applemusic"), true
	}

	return core.ChatLink{}, false
}

func foreign(raw, cleaned, service string) core.ChatLink {
	return core.ChatLink{
		Platform: core.PlatformForeign,
		Service:  service,
		RawURL:   raw,
		CleanURL: cleaned,
	}
}

func foreignPlaylist(raw, cleaned, service string) core.ChatLink {
	return core.ChatLink{
		Platform: core.PlatformForeignPlaylist,
		Service:  service,
		RawURL:   raw,
		CleanURL: cleaned,
	}
}

// CleanURL strips trailing punctuation and tracking query parameters so
// that two shares of the same track compare equal.
func CleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;:)]}>\"'")

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()
	u.Host = strings.ToLower(u.Host)

	return u.String()
}

func canonicalHost(hostname string) string {
	host := strings.ToLower(hostname)
	for _, prefix := range []string{"www.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}
	// Amazon Music uses regional TLDs with identical URL shapes.
	if strings.HasPrefix(host, "music.amazon.") {
		return "music.amazon.com"
	}
	if strings.HasPrefix(host, "amazon.") {
		return "amazon.com"
	}
	return host
}
