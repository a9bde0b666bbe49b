package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner drives a complete sync run: fetch the export, build the
// target sequence, plan the mutations and apply them. Setup failures
// (source, playlist read) are fatal; per-link and per-batch failures
// are recorded on the report and the run finishes.
type Runner struct {
	config    *Config
	source    Source
	extractor LinkExtractor
	target    *TargetBuilder
	playlist  PlaylistService
	planner   Planner
	applier   Applier
	logger    *zap.Logger
}

func NewRunner(
	config *Config,
	source Source,
	extractor LinkExtractor,
	target *TargetBuilder,
	playlist PlaylistService,
	planner Planner,
	applier Applier,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		config:    config,
		source:    source,
		extractor: extractor,
		target:    target,
		playlist:  playlist,
		planner:   planner,
		applier:   applier,
		logger:    logger,
	}
}

// Run executes one sync cycle and always returns a report, even on
// fatal errors, so the caller can still push metrics for the attempt.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		Policy:    r.config.Policy(),
		DryRun:    r.config.Sync.DryRun,
		StartedAt: time.Now(),
	}
	defer func() { report.FinishedAt = time.Now() }()

	logger := r.logger.With(zap.String("runID", report.RunID))
	logger.Info("run started",
		zap.String("policy", report.Policy),
		zap.Bool("dryRun", report.DryRun))

	text, err := r.source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch chat export: %w", err)
	}

	links := r.extractor.ExtractLinks(text)
	report.LinksExtracted = len(links)

	targetIDs := r.target.Build(ctx, links, report)

	current, err := r.playlist.GetPlaylistTracks(ctx, r.config.Spotify.PlaylistID)
	if err != nil {
		return report, fmt.Errorf("failed to read playlist: %w", err)
	}

	plan := r.planner.Plan(current, targetIDs, r.config.Sync.FullReorder)
	report.OpsPlanned = len(plan)
	countOps(plan, report)

	if len(plan) == 0 {
		logger.Info("playlist already converged")
		return report, nil
	}

	if report.DryRun {
		for _, op := range plan {
			logger.Info("planned op (dry run)",
				zap.String("kind", op.Kind.String()),
				zap.String("trackID", op.TrackID),
				zap.Int("pos", op.Pos))
		}
		r.summarizeAdds(ctx, plan, report)
		return report, nil
	}

	result, err := r.applier.Apply(ctx, current, plan)
	if result != nil {
		report.OpsApplied = result.Applied
	}
	if err != nil {
		// Partial application is an issue, not a fatal error: the next
		// scheduled run converges from wherever this one stopped.
		logger.Error("sync incomplete", zap.Error(err),
			zap.Int("applied", report.OpsApplied),
			zap.Int("planned", report.OpsPlanned))
		report.AddIssue("", "apply", err.Error())
	}

	r.retainApplied(plan, report)
	r.summarizeAdds(ctx, plan[:report.OpsApplied], report)

	logger.Info("run finished",
		zap.Int("added", len(report.Added)),
		zap.Int("moved", report.Moved),
		zap.Int("removed", report.Removed),
		zap.Int("issues", len(report.Issues)))

	return report, nil
}

// countOps fills the per-kind counters from the full plan. Dry runs
// keep these as "would have" numbers.
func countOps(plan []SyncOp, report *RunReport) {
	report.Moved = 0
	report.Removed = 0
	for _, op := range plan {
		switch op.Kind {
		case OpMove:
			report.Moved++
		case OpRemove:
			report.Removed++
		}
	}
}

// retainApplied recounts moves and removes over the applied prefix so
// a partially applied run reports what actually happened.
func (r *Runner) retainApplied(plan []SyncOp, report *RunReport) {
	if report.OpsApplied >= len(plan) {
		return
	}
	countOps(plan[:report.OpsApplied], report)
}

// summarizeAdds fetches display metadata for added tracks so the report
// line can name them. Lookup failures degrade to bare IDs.
func (r *Runner) summarizeAdds(ctx context.Context, ops []SyncOp, report *RunReport) {
	var ids []string
	for _, op := range ops {
		if op.Kind == OpAppend || op.Kind == OpInsertAt {
			ids = append(ids, op.TrackID)
		}
	}
	if len(ids) == 0 {
		return
	}

	tracks, err := r.playlist.GetTracks(ctx, ids)
	if err != nil {
		r.logger.Warn("failed to fetch added track details", zap.Error(err))
		for _, id := range ids {
			report.Added = append(report.Added, TrackSummary{ID: id})
		}
		return
	}

	byID := make(map[string]Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	for _, id := range ids {
		summary := TrackSummary{ID: id}
		if t, ok := byID[id]; ok {
			summary.Title = t.Title
			summary.Artist = t.Artist
		}
		report.Added = append(report.Added, summary)
	}
}
