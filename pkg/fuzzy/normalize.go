// Package fuzzy normalizes track metadata and scores how likely two
// (title, artist) pairs describe the same recording.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s+(?:feat|ft|featuring)\b.*$`)
	decorRegex      = regexp.MustCompile(`(?i)\s+(?:remix|remaster(?:ed)?|radio edit|extended(?: mix)?|deluxe(?: edition)?|single version|album version|clean|explicit)\b.*$`)
	joinRegex       = regexp.MustCompile(`(?i)\s+(?:and|x|vs|with)\s+`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeTitle reduces a track title to its comparable core: case and
// diacritics folded, punctuation dropped, and trailing feat/remix/version
// decorations stripped.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = n.basicNormalize(title)

	title = featRegex.ReplaceAllString(title, "")
	title = decorRegex.ReplaceAllString(title, "")

	return strings.TrimSpace(title)
}

// NormalizeArtist folds an artist credit so that "A & B", "A x B" and
// "A, B" compare equal. Featured-artist credits are kept; they carry
// signal when the title side dropped them.
func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = joinRegex.ReplaceAllString(artist, " ")

	return strings.TrimSpace(artist)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(strings.ToLower(text))
}

// CalculateSimilarity returns the longest-common-subsequence ratio of two
// strings in [0, 1], computed over runes so folded non-ASCII input does
// not skew the length denominator.
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	return float64(longestCommonSubsequence(r1, r2)) / float64(max(len(r1), len(r2)))
}

func longestCommonSubsequence(r1, r2 []rune) int {
	m, n := len(r1), len(r2)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if r1[i-1] == r2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}
