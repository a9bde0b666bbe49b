package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPClientCapsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.String(), http.StatusFound)
	}))
	defer server.Close()

	client := newHTTPClient()
	resp, err := client.Get(server.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("redirect loop should error out")
	}
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("error = %v, want ErrTooManyRedirects", err)
	}
}

func TestFetchHTML(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><title>Page</title></html>"))
	}))
	defer server.Close()

	html, err := fetchHTML(context.Background(), newHTTPClient(), server.URL, "testservice")
	if err != nil {
		t.Fatalf("fetchHTML() returned error: %v", err)
	}
	if !strings.Contains(html, "<title>Page</title>") {
		t.Errorf("fetchHTML() = %q, want page body", html)
	}
	if gotUserAgent != commonUserAgent {
		t.Errorf("User-Agent = %q, want browser UA", gotUserAgent)
	}
}

func TestFetchHTMLNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := fetchHTML(context.Background(), newHTTPClient(), server.URL, "testservice")
	if err == nil {
		t.Fatal("non-200 status should error")
	}
	if !strings.Contains(err.Error(), "testservice") {
		t.Errorf("error %q should name the service", err)
	}
}

func TestFetchOEmbedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q, want json", r.URL.Query().Get("format"))
		}
		if r.URL.Query().Get("url") != "https://example.com/watch?v=abc" {
			t.Errorf("url param = %q, want target URL", r.URL.Query().Get("url"))
		}
		_, _ = w.Write([]byte(`{"title":"Song Title","author_name":"Channel"}`))
	}))
	defer server.Close()

	var resp YouTubeOEmbedResponse
	err := fetchOEmbedJSON(context.Background(), newHTTPClient(), server.URL, "https://example.com/watch?v=abc", &resp)
	if err != nil {
		t.Fatalf("fetchOEmbedJSON() returned error: %v", err)
	}
	if resp.Title != "Song Title" || resp.AuthorName != "Channel" {
		t.Errorf("decoded = %+v, want title and author", resp)
	}
}

func TestFetchOEmbedJSONFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "invalid JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>not json</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var resp YouTubeOEmbedResponse
			err := fetchOEmbedJSON(context.Background(), newHTTPClient(), server.URL, "https://example.com/x", &resp)
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMetaProperty(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Track Name"/>
		<meta property="og:description" content="Track Name by Some Artist"/>
	</head></html>`

	if got := metaProperty(html, "og:title"); got != "Track Name" {
		t.Errorf("metaProperty(og:title) = %q, want %q", got, "Track Name")
	}
	if got := metaProperty(html, "og:image"); got != "" {
		t.Errorf("metaProperty(og:image) = %q, want empty for missing tag", got)
	}
}

func TestSplitTitleTag(t *testing.T) {
	tests := []struct {
		name           string
		html           string
		suffix         string
		separator      string
		expectedTitle  string
		expectedArtist string
	}{
		{
			name:           "title with separator and suffix",
			html:           "<title>Karma Police - Radiohead on SomeService</title>",
			suffix:         " on SomeService",
			separator:      " - ",
			expectedTitle:  "Karma Police",
			expectedArtist: "Radiohead",
		},
		{
			name:          "title without separator keeps artist empty",
			html:          "<title>Karma Police on SomeService</title>",
			suffix:        " on SomeService",
			separator:     " - ",
			expectedTitle: "Karma Police",
		},
		{
			name:      "no title tag",
			html:      "<html><body>nothing here</body></html>",
			suffix:    "",
			separator: " - ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, artist := splitTitleTag(tt.html, tt.suffix, tt.separator)
			if title != tt.expectedTitle {
				t.Errorf("title = %q, want %q", title, tt.expectedTitle)
			}
			if artist != tt.expectedArtist {
				t.Errorf("artist = %q, want %q", artist, tt.expectedArtist)
			}
		})
	}
}

func TestSplitByArtist(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		suffix   string
		expected string
	}{
		{
			name:     "description with suffix",
			text:     "Karma Police by Radiohead | Listen on SomeService",
			suffix:   " | Listen",
			expected: "Radiohead",
		},
		{
			name:     "description without suffix",
			text:     "Karma Police by Radiohead",
			suffix:   " | Listen",
			expected: "Radiohead",
		},
		{
			name:     "no by clause",
			text:     "Karma Police - Radiohead",
			suffix:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitByArtist(tt.text, tt.suffix); got != tt.expected {
				t.Errorf("splitByArtist(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}
