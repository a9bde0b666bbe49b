package musiclink

import (
	"context"
	"errors"
	"testing"
)

func TestTidalResolver_CanResolve(t *testing.T) {
	resolver := NewTidalResolver()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Valid tidal.com URL",
			url:      "https://tidal.com/track/12345678",
			expected: true,
		},
		{
			name:     "Valid www.tidal.com URL",
			url:      "https://www.tidal.com/track/12345678",
			expected: true,
		},
		{
			name:     "Valid listen.tidal.com URL",
			url:      "https://listen.tidal.com/track/87654321",
			expected: true,
		},
		{
			name:     "Valid with browse path",
			url:      "https://tidal.com/browse/track/87654321",
			expected: true,
		},
		{
			name:     "Invalid - non-Tidal URL",
			url:      "https://example.com",
			expected: false,
		},
		{
			name:     "Invalid - Spotify URL",
			url:      "https://open.spotify.com/track/123",
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

func TestTidalResolver_extractTrackInfo(t *testing.T) {
	resolver := NewTidalResolver()

	tests := []struct {
		name           string
		html           string
		expectedTitle  string
		expectedArtist string
		wantErr        bool
	}{
		{
			name: "OpenGraph tags preferred",
			html: `<meta property="og:title" content="Never Gonna Give You Up">` +
				`<meta property="og:description" content="Listen to Never Gonna Give You Up by Rick Astley on TIDAL">`,
			expectedTitle:  "Never Gonna Give You Up",
			expectedArtist: "Rick Astley",
		},
		{
			name:          "Only og:title",
			html:          `<meta property="og:title" content="Track Title">`,
			expectedTitle: "Track Title",
		},
		{
			name:           "En dash separator with TIDAL suffix",
			html:           `<title>Never Gonna Give You Up – Rick Astley | TIDAL</title>`,
			expectedTitle:  "Never Gonna Give You Up",
			expectedArtist: "Rick Astley",
		},
		{
			name:           "Hyphen separator with TIDAL suffix",
			html:           `<title>Track Title - Artist Name | TIDAL</title>`,
			expectedTitle:  "Track Title",
			expectedArtist: "Artist Name",
		},
		{
			name:          "No separator - title only",
			html:          `<title>Just Track Title | TIDAL</title>`,
			expectedTitle: "Just Track Title",
		},
		{
			name:    "No usable metadata",
			html:    `<html><body>No title</body></html>`,
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

func TestTidalResolver_Resolve_NonTrackURLs(t *testing.T) {
	resolver := NewTidalResolver()

	urls := []string{
		"https://tidal.com/playlist/abc-def",
		"https://tidal.com/browse/mix/123",
		"https://tidal.com/album/456",
	}

	for _, u := range urls {
		if _, err := resolver.Resolve(context.Background(), u); !errors.Is(err, ErrNotTrackURL) {
			t.Errorf("Resolve(%q) error = %v, want ErrNotTrackURL", u, err)
		}
	}
}
