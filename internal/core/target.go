package core

import (
	"context"

	"go.uber.org/zap"
)

// LinkExtractor turns chat text into classified music links.
type LinkExtractor interface {
	ExtractLinks(text string) []ChatLink
}

// TrackIDExtractor extracts the track ID from a native link, following
// short-link redirects when needed.
type TrackIDExtractor interface {
	ExtractTrackID(rawURL string) (string, error)
}

// TargetBuilder converts extracted links into the deduplicated target
// track sequence, recording per-link issues on the report.
type TargetBuilder struct {
	ids      TrackIDExtractor
	resolver Resolver
	seen     SeenIndex
	logger   *zap.Logger
}

func NewTargetBuilder(ids TrackIDExtractor, resolver Resolver, seen SeenIndex, logger *zap.Logger) *TargetBuilder {
	return &TargetBuilder{
		ids:      ids,
		resolver: resolver,
		seen:     seen,
		logger:   logger,
	}
}

// Build returns the target sequence: one Spotify track ID per distinct
// track, ordered by first appearance in the chat. Links that cannot be
// turned into a track ID become report issues and are skipped; they
// never abort the run.
func (b *TargetBuilder) Build(ctx context.Context, links []ChatLink, report *RunReport) []string {
	target := make([]string, 0, len(links))

	for _, link := range links {
		id, ok := b.trackID(ctx, link, report)
		if !ok {
			continue
		}

		report.LinksResolved++

		// Duplicates keep their first-appearance position.
		if b.seen.Has(id) {
			continue
		}
		b.seen.Add(id)
		target = append(target, id)
	}

	b.logger.Info("target sequence built",
		zap.Int("links", len(links)),
		zap.Int("tracks", len(target)))

	return target
}

func (b *TargetBuilder) trackID(ctx context.Context, link ChatLink, report *RunReport) (string, bool) {
	switch link.Platform {
	case PlatformNative:
		if link.TrackID != "" {
			return link.TrackID, true
		}
		// Shortened links carry no ID in the URL itself.
		id, err := b.ids.ExtractTrackID(link.CleanURL)
		if err != nil {
			b.logger.Warn("short link did not resolve",
				zap.String("url", link.CleanURL),
				zap.Error(err))
			report.AddIssue(link.RawURL, "extract", err.Error())
			return "", false
		}
		return id, true

	case PlatformForeign:
		resolved := b.resolver.Resolve(ctx, link)
		switch resolved.Status {
		case StatusUnmatched:
			report.AddIssue(link.RawURL, "resolve", resolved.Reason)
			return "", false
		case StatusAmbiguous:
			// Above threshold but the tie was never settled; keep the
			// rank leader, flag it in the log for a human to double-check.
			b.logger.Warn("ambiguous match kept",
				zap.String("url", link.CleanURL),
				zap.String("track", resolved.ID),
				zap.String("reason", resolved.Reason))
		}
		return resolved.ID, true

	case PlatformForeignPlaylist:
		report.AddIssue(link.RawURL, "resolve", "playlist links are not resolved")
		return "", false

	default:
		return "", false
	}
}
