package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// commonUserAgent is sent on every request; several providers serve a
	// stripped page to unknown clients.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// commonAcceptHeader is the accept header used for all HTTP requests.
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// defaultHTTPTimeout bounds every provider request.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of redirects to follow.
	maxHTTPRedirects = 3
	// maxHTMLReadSize caps page reads; metadata lives in the head.
	maxHTMLReadSize = 100 * 1024
	// splitParts is the expected part count when splitting title/artist strings.
	splitParts = 2
)

// ErrTooManyRedirects is returned when a provider redirect chain is too long.
var ErrTooManyRedirects = errors.New("too many redirects")

var titleTagRegex = regexp.MustCompile(`<title>([^<]+)</title>`)

// newHTTPClient creates an HTTP client with the shared timeout and redirect cap.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchHTML fetches a provider page with browser headers and a read limit.
func fetchHTML(ctx context.Context, client *http.Client, pageURL, serviceName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", serviceName, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLReadSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(bodyBytes), nil
}

// fetchOEmbedJSON fetches and decodes JSON from an oEmbed API endpoint.
func fetchOEmbedJSON(ctx context.Context, client *http.Client, oembedURL, targetURL string, dest interface{}) error {
	reqURL := fmt.Sprintf("%s?url=%s&format=json", oembedURL, url.QueryEscape(targetURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oEmbed API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode oEmbed response: %w", err)
	}

	return nil
}

// metaProperty extracts the content of a named OpenGraph-style meta tag.
func metaProperty(html, property string) string {
	re := regexp.MustCompile(`<meta\s+property="` + regexp.QuoteMeta(property) + `"\s+content="([^"]+)"`)
	if matches := re.FindStringSubmatch(html); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// splitTitleTag extracts (title, artist) from an HTML <title> tag of the
// common "Track Title by Artist on Service" shape. The suffix is stripped
// first, then the text is split once on the separator.
func splitTitleTag(html, serviceSuffix, separator string) (title, artist string) {
	matches := titleTagRegex.FindStringSubmatch(html)
	if len(matches) < splitParts {
		return "", ""
	}

	titleText := matches[1]

	if serviceSuffix != "" {
		titleText = strings.TrimSuffix(titleText, serviceSuffix)
		titleText = strings.TrimSpace(titleText)
	}

	if separator != "" && strings.Contains(titleText, separator) {
		parts := strings.SplitN(titleText, separator, splitParts)
		if len(parts) == splitParts {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}

	return titleText, ""
}

// splitByArtist splits "Something by Artist" descriptions, trimming a
// trailing service suffix from the artist part when present.
func splitByArtist(text, serviceSuffix string) (artist string) {
	if !strings.Contains(text, " by ") {
		return ""
	}

	parts := strings.SplitN(text, " by ", splitParts)
	if len(parts) != splitParts {
		return ""
	}

	artist = parts[1]
	if serviceSuffix != "" {
		if idx := strings.Index(artist, serviceSuffix); idx != -1 {
			artist = artist[:idx]
		}
	}

	return strings.TrimSpace(artist)
}
