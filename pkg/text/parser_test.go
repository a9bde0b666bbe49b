package text

import (
	"testing"

	"vibesync/internal/core"
)

func TestExtractLinks(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name string
		text string
		want []core.ChatLink
	}{
		{
			name: "native track with tracking params stripped",
			text: "12/01/24, 10:15 - Alice: https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc&utm_source=whatsapp",
			want: []core.ChatLink{{
				Platform: core.PlatformNative,
				Service:  "spotify",
				CleanURL: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
				TrackID:  "4uLU6hMCjMI75M1A2tKUQC",
			}},
		},
		{
			name: "same track shared twice dedups to first occurrence",
			text: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=one and later " +
				"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=two",
			want: []core.ChatLink{{
				Platform: core.PlatformNative,
				Service:  "spotify",
				CleanURL: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
				TrackID:  "4uLU6hMCjMI75M1A2tKUQC",
			}},
		},
		{
			name: "spotify URI",
			text: "check spotify:track:4uLU6hMCjMI75M1A2tKUQC out",
			want: []core.ChatLink{{
				Platform: core.PlatformNative,
				Service:  "spotify",
				CleanURL: "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
				TrackID:  "4uLU6hMCjMI75M1A2tKUQC",
			}},
		},
		{
			name: "short link has no track ID yet",
			text: "https://spotify.link/abc123",
			want: []core.ChatLink{{
				Platform: core.PlatformNative,
				Service:  "spotify",
				CleanURL: "https://spotify.link/abc123",
			}},
		},
		{
			name: "native playlist link ignored",
			text: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want: nil,
		},
		{
			name: "youtube video is foreign",
			text: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: []core.ChatLink{{
				Platform: core.PlatformForeign,
				Service:  "youtube",
				CleanURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			}},
		},
		{
			name: "youtube playlist flagged",
			text: "https://www.youtube.com/playlist?list=PLabc",
			want: []core.ChatLink{{
				Platform: core.PlatformForeignPlaylist,
				Service:  "youtube",
				CleanURL: "https://www.youtube.com/playlist?list=PLabc",
			}},
		},
		{
			name: "apple music album with track selector is foreign",
			text: "https://music.apple.com/us/album/album-name/123?i=456",
			want: []core.ChatLink{{
				Platform: core.PlatformForeign,
				Service:  "applemusic",
				CleanURL: "https://music.apple.com/us/album/album-name/123?i=456",
			}},
		},
		{
			name: "apple music album without selector is a playlist share",
			text: "https://music.apple.com/us/album/album-name/123",
			want: []core.ChatLink{{
				Platform: core.PlatformForeignPlaylist,
				Service:  "applemusic",
				CleanURL: "https://music.apple.com/us/album/album-name/123",
			}},
		},
		{
			name: "soundcloud set flagged",
			text: "https://soundcloud.com/artist/sets/mix",
			want: []core.ChatLink{{
				Platform: core.PlatformForeignPlaylist,
				Service:  "soundcloud",
				CleanURL: "https://soundcloud.com/artist/sets/mix",
			}},
		},
		{
			name: "trailing punctuation trimmed",
			text: "listen: https://youtu.be/dQw4w9WgXcQ!",
			want: []core.ChatLink{{
				Platform: core.PlatformForeign,
				Service:  "youtube",
				CleanURL: "https://youtu.be/dQw4w9WgXcQ",
			}},
		},
		{
			name: "non-music URLs dropped",
			text: "https://example.com/article and https://en.wikipedia.org/wiki/Song",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parser.ExtractLinks(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractLinks() = %+v, want %d links", got, len(tt.want))
			}
			for i := range tt.want {
				if got[i].Platform != tt.want[i].Platform {
					t.Errorf("link %d platform = %v, want %v", i, got[i].Platform, tt.want[i].Platform)
				}
				if got[i].Service != tt.want[i].Service {
					t.Errorf("link %d service = %q, want %q", i, got[i].Service, tt.want[i].Service)
				}
				if got[i].CleanURL != tt.want[i].CleanURL {
					t.Errorf("link %d cleanURL = %q, want %q", i, got[i].CleanURL, tt.want[i].CleanURL)
				}
				if got[i].TrackID != tt.want[i].TrackID {
					t.Errorf("link %d trackID = %q, want %q", i, got[i].TrackID, tt.want[i].TrackID)
				}
				if got[i].Position != i {
					t.Errorf("link %d position = %d, want %d", i, got[i].Position, i)
				}
			}
		})
	}
}

func TestExtractLinksFirstSeenOrder(t *testing.T) {
	parser := NewParser()

	text := "https://open.spotify.com/track/aaaaaaaaaaaaaaaaaaaaaa first\n" +
		"https://youtu.be/video1 second\n" +
		"https://open.spotify.com/track/bbbbbbbbbbbbbbbbbbbbbb third\n" +
		"https://open.spotify.com/track/aaaaaaaaaaaaaaaaaaaaaa again\n"

	got := parser.ExtractLinks(text)
	if len(got) != 3 {
		t.Fatalf("ExtractLinks() returned %d links, want 3", len(got))
	}
	if got[0].TrackID != "aaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("first link = %q", got[0].TrackID)
	}
	if got[1].Service != "youtube" {
		t.Errorf("second link service = %q, want youtube", got[1].Service)
	}
	if got[2].TrackID != "bbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("third link = %q", got[2].TrackID)
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips utm params",
			in:   "https://youtu.be/abc?utm_source=x&utm_medium=y",
			want: "https://youtu.be/abc",
		},
		{
			name: "strips si param",
			in:   "https://open.spotify.com/track/abc?si=xyz",
			want: "https://open.spotify.com/track/abc",
		},
		{
			name: "keeps functional params",
			in:   "https://www.youtube.com/watch?v=abc",
			want: "https://www.youtube.com/watch?v=abc",
		},
		{
			name: "trailing punctuation",
			in:   "https://youtu.be/abc),",
			want: "https://youtu.be/abc",
		},
		{
			name: "lowercases host",
			in:   "https://YouTu.be/abc",
			want: "https://youtu.be/abc",
		},
		{
			name: "rejects non-http",
			in:   "ftp://example.com/file",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanURL(tt.in); got != tt.want {
				t.Errorf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
