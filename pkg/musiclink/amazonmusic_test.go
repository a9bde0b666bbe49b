package musiclink

import (
	"context"
	"errors"
	"testing"
)

func TestAmazonMusicResolver_CanResolve(t *testing.T) {
	resolver := NewAmazonMusicResolver()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "US domain",
			url:      "https://music.amazon.com/albums/B0ABC123?trackAsin=B0XYZ789",
			expected: true,
		},
		{
			name:     "UK domain",
			url:      "https://music.amazon.co.uk/tracks/B0ABC123",
			expected: true,
		},
		{
			name:     "India domain",
			url:      "https://music.amazon.in/tracks/B0ABC123",
			expected: true,
		},
		{
			name:     "German domain",
			url:      "https://music.amazon.de/tracks/B0ABC123",
			expected: true,
		},
		{
			name:     "Plain amazon.com is not Amazon Music",
			url:      "https://www.amazon.com/dp/B0ABC123",
			expected: false,
		},
		{
			name:     "Non-Amazon URL",
			url:      "https://example.com",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resolver.CanResolve(tt.url)
			if result != tt.expected {
				t.Errorf("CanResolve() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmazonMusicResolver_extractTrackInfo(t *testing.T) {
	resolver := NewAmazonMusicResolver()

	tests := []struct {
		name           string
		html           string
		expectedTitle  string
		expectedArtist string
		wantErr        bool
	}{
		{
			name: "OpenGraph tags",
			html: `<meta property="og:title" content="Blinding Lights">` +
				`<meta property="og:description" content="Blinding Lights by The Weeknd on Amazon Music">`,
			expectedTitle:  "Blinding Lights",
			expectedArtist: "The Weeknd",
		},
		{
			name:          "Only og:title",
			html:          `<meta property="og:title" content="Track Title">`,
			expectedTitle: "Track Title",
		},
		{
			name:           "Title tag fallback",
			html:           `<title>Song Title by Artist Name on Amazon Music</title>`,
			expectedTitle:  "Song Title",
			expectedArtist: "Artist Name",
		},
		{
			name:          "Title tag without artist",
			html:          `<title>Song Title on Amazon Music</title>`,
			expectedTitle: "Song Title",
		},
		{
			name:    "No usable metadata",
			html:    `<html><body>nothing</body></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, artist, err := resolver.extractTrackInfo(tt.html)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("extractTrackInfo() = (%q, %q), want error", title, artist)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractTrackInfo() returned error: %v", err)
			}
			if title != tt.expectedTitle {
				t.Errorf("extractTrackInfo() title = %q, want %q", title, tt.expectedTitle)
			}
			if artist != tt.expectedArtist {
				t.Errorf("extractTrackInfo() artist = %q, want %q", artist, tt.expectedArtist)
			}
		})
	}
}

func TestAmazonMusicResolver_Resolve_NonTrackURLs(t *testing.T) {
	resolver := NewAmazonMusicResolver()

	urls := []string{
		"https://music.amazon.com/playlists/B0PLAYLIST",
		"https://music.amazon.in/user-playlists/abc123",
	}

	for _, u := range urls {
		if _, err := resolver.Resolve(context.Background(), u); !errors.Is(err, ErrNotTrackURL) {
			t.Errorf("Resolve(%q) error = %v, want ErrNotTrackURL", u, err)
		}
	}
}
