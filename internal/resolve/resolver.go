// Package resolve binds foreign music links to Spotify track IDs: fetch
// display metadata, search, score, and gate on confidence.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"vibesync/internal/core"
	"vibesync/pkg/musiclink"
)

// Metadata yields (title, artist) for a foreign provider URL.
type Metadata interface {
	CanResolve(url string) bool
	Resolve(ctx context.Context, url string) (*musiclink.TrackInfo, error)
}

// Searcher queries the native service for candidate tracks.
type Searcher interface {
	SearchTrack(ctx context.Context, query string) ([]core.Track, error)
}

// Scorer rates how likely two (title, artist) pairs describe the same
// recording, bounded to [0, 1]. Pluggable so the heuristic can be tuned
// and tested apart from the network pipeline.
type Scorer interface {
	Score(wantTitle, wantArtist, gotTitle, gotArtist string) float64
}

// Adjudicator picks among close above-threshold candidates. It returns
// the index into the candidate slice, or ok=false to abstain.
type Adjudicator interface {
	PickTrack(ctx context.Context, title, artist string, candidates []core.Track) (idx int, ok bool, err error)
}

// Pipeline resolves foreign chat links. Every failure mode is expressed
// through the ResolvedTrack status so a bad link never aborts the run.
type Pipeline struct {
	metadata        Metadata
	searcher        Searcher
	scorer          Scorer
	adjudicator     Adjudicator // nil when no LLM provider is configured
	minConfidence   float64
	ambiguityMargin float64
	logger          *zap.Logger
}

func NewPipeline(
	metadata Metadata,
	searcher Searcher,
	scorer Scorer,
	adjudicator Adjudicator,
	minConfidence, ambiguityMargin float64,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		metadata:        metadata,
		searcher:        searcher,
		scorer:          scorer,
		adjudicator:     adjudicator,
		minConfidence:   minConfidence,
		ambiguityMargin: ambiguityMargin,
		logger:          logger,
	}
}

type scoredCandidate struct {
	track core.Track
	score float64
}

// Resolve runs the pipeline for one foreign link.
func (p *Pipeline) Resolve(ctx context.Context, link core.ChatLink) core.ResolvedTrack {
	unmatched := func(reason string) core.ResolvedTrack {
		p.logger.Debug("link unmatched",
			zap.String("url", link.CleanURL),
			zap.String("service", link.Service),
			zap.String("reason", reason))
		return core.ResolvedTrack{Source: link, Status: core.StatusUnmatched, Reason: reason}
	}

	info, err := p.metadata.Resolve(ctx, link.CleanURL)
	if err != nil {
		if errors.Is(err, musiclink.ErrNotTrackURL) {
			return unmatched("not a single-track URL")
		}
		return unmatched(fmt.Sprintf("metadata fetch failed: %v", err))
	}
	if strings.TrimSpace(info.Title) == "" {
		return unmatched("provider page carried no title")
	}

	query := strings.TrimSpace(info.Title + " " + info.Artist)
	candidates, err := p.searcher.SearchTrack(ctx, query)
	if err != nil {
		return unmatched(fmt.Sprintf("search failed: %v", err))
	}
	if len(candidates) == 0 {
		return unmatched("no search candidates")
	}

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{
			track: c,
			score: p.scorer.Score(info.Title, info.Artist, c.Title, c.Artist),
		}
	}
	// Stable sort: equal scores keep search rank order, so ties break
	// toward the earlier search result.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	best := scored[0]
	if best.score < p.minConfidence {
		return unmatched(fmt.Sprintf("best candidate %q by %q scored %.2f, below %.2f",
			best.track.Title, best.track.Artist, best.score, p.minConfidence))
	}

	choice := best
	status := core.StatusMatched
	reason := ""
	if len(scored) > 1 && best.score-scored[1].score < p.ambiguityMargin {
		var settled bool
		choice, settled = p.adjudicate(ctx, info, scored)
		if !settled {
			// The rank leader is above threshold, so it is still usable;
			// the status records that the tie was never broken.
			status = core.StatusAmbiguous
			reason = fmt.Sprintf("top candidates within %.2f of each other, kept %q by %q",
				p.ambiguityMargin, choice.track.Title, choice.track.Artist)
		}
	}

	p.logger.Debug("link resolved",
		zap.String("url", link.CleanURL),
		zap.String("track", choice.track.ID),
		zap.Float64("confidence", choice.score),
		zap.Stringer("status", status))

	return core.ResolvedTrack{
		ID:         choice.track.ID,
		Title:      choice.track.Title,
		Artist:     choice.track.Artist,
		Source:     link,
		Confidence: choice.score,
		Status:     status,
		Reason:     reason,
	}
}

// adjudicate asks the LLM to pick among the candidates inside the
// ambiguity margin. Only already-above-threshold candidates are offered.
// The second return reports whether the tie was actually settled;
// abstention or error falls back to search rank order, unsettled.
func (p *Pipeline) adjudicate(ctx context.Context, info *musiclink.TrackInfo, scored []scoredCandidate) (scoredCandidate, bool) {
	best := scored[0]
	if p.adjudicator == nil {
		return best, false
	}

	var close []scoredCandidate
	for _, c := range scored {
		if best.score-c.score < p.ambiguityMargin && c.score >= p.minConfidence {
			close = append(close, c)
		}
	}
	if len(close) < 2 {
		// Runners-up were below threshold anyway, nothing to arbitrate.
		return best, true
	}

	tracks := make([]core.Track, len(close))
	for i, c := range close {
		tracks[i] = c.track
	}

	idx, ok, err := p.adjudicator.PickTrack(ctx, info.Title, info.Artist, tracks)
	if err != nil {
		p.logger.Warn("adjudication failed, falling back to rank order", zap.Error(err))
		return best, false
	}
	if !ok || idx < 0 || idx >= len(close) {
		return best, false
	}

	p.logger.Debug("adjudicator picked candidate",
		zap.Int("index", idx),
		zap.String("track", close[idx].track.ID))
	return close[idx], true
}
