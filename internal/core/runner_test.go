package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeSource struct {
	text string
	err  error
}

func (f *fakeSource) Fetch(context.Context) (string, error) { return f.text, f.err }

type fakeExtractor struct {
	links []ChatLink
}

func (f *fakeExtractor) ExtractLinks(string) []ChatLink { return f.links }

type fakePlaylist struct {
	current   []string
	tracks    map[string]Track
	added     [][]string
	removed   [][]string
	reordered int
	fetchErr  error
}

func (f *fakePlaylist) GetPlaylistTracks(context.Context, string) ([]string, error) {
	return f.current, f.fetchErr
}

func (f *fakePlaylist) GetTracks(_ context.Context, ids []string) ([]Track, error) {
	var out []Track
	for _, id := range ids {
		if t, ok := f.tracks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakePlaylist) SearchTrack(context.Context, string) ([]Track, error) { return nil, nil }

func (f *fakePlaylist) AddTracks(_ context.Context, _ string, ids ...string) error {
	f.added = append(f.added, ids)
	return nil
}

func (f *fakePlaylist) RemoveTracks(_ context.Context, _ string, ids ...string) error {
	f.removed = append(f.removed, ids)
	return nil
}

func (f *fakePlaylist) Reorder(context.Context, string, int, int) error {
	f.reordered++
	return nil
}

func (f *fakePlaylist) ExtractTrackID(string) (string, error) {
	return "", errors.New("no track ID found in URL")
}

type fakePlanner struct {
	plan []SyncOp
}

func (f *fakePlanner) Plan(_, _ []string, _ bool) []SyncOp { return f.plan }

type fakeApplier struct {
	result *ApplyResult
	err    error
}

func (f *fakeApplier) Apply(_ context.Context, _ []string, plan []SyncOp) (*ApplyResult, error) {
	if f.result != nil {
		return f.result, f.err
	}
	return &ApplyResult{Planned: len(plan), Applied: len(plan)}, f.err
}

func testRunner(t *testing.T, source Source, extractor LinkExtractor, playlist PlaylistService, planner Planner, applier Applier) *Runner {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Spotify.PlaylistID = "playlist1"
	target := NewTargetBuilder(&fakeIDExtractor{}, &fakeResolver{}, newMapSeenIndex(), zap.NewNop())
	return NewRunner(cfg, source, extractor, target, playlist, planner, applier, zap.NewNop())
}

func TestRunnerHappyPath(t *testing.T) {
	links := []ChatLink{
		native("https://open.spotify.com/track/id1", "id1"),
		native("https://open.spotify.com/track/id2", "id2"),
	}
	playlist := &fakePlaylist{
		current: []string{"id1"},
		tracks: map[string]Track{
			"id2": {ID: "id2", Title: "Karma Police", Artist: "Radiohead"},
		},
	}
	planner := &fakePlanner{plan: []SyncOp{{Kind: OpAppend, TrackID: "id2"}}}

	runner := testRunner(t, &fakeSource{text: "chat"}, &fakeExtractor{links: links}, playlist, planner, &fakeApplier{})

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if report.LinksExtracted != 2 || report.LinksResolved != 2 {
		t.Errorf("extracted/resolved = %d/%d, want 2/2", report.LinksExtracted, report.LinksResolved)
	}
	if report.OpsPlanned != 1 || report.OpsApplied != 1 {
		t.Errorf("planned/applied = %d/%d, want 1/1", report.OpsPlanned, report.OpsApplied)
	}
	if len(report.Added) != 1 || report.Added[0].Title != "Karma Police" {
		t.Errorf("Added = %v, want Karma Police", report.Added)
	}
	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
}

func TestRunnerFatalOnSourceError(t *testing.T) {
	runner := testRunner(t,
		&fakeSource{err: errors.New("drive unreachable")},
		&fakeExtractor{}, &fakePlaylist{}, &fakePlanner{}, &fakeApplier{})

	report, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil error, want fatal source error")
	}
	if report == nil {
		t.Fatal("Run() should return a report even on fatal errors")
	}
	if !strings.Contains(err.Error(), "chat export") {
		t.Errorf("error = %v, want chat export context", err)
	}
}

func TestRunnerFatalOnPlaylistReadError(t *testing.T) {
	runner := testRunner(t,
		&fakeSource{text: "chat"}, &fakeExtractor{},
		&fakePlaylist{fetchErr: errors.New("403")},
		&fakePlanner{}, &fakeApplier{})

	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil error, want fatal playlist read error")
	}
}

func TestRunnerConverged(t *testing.T) {
	runner := testRunner(t,
		&fakeSource{text: "chat"}, &fakeExtractor{},
		&fakePlaylist{current: []string{"id1"}},
		&fakePlanner{}, &fakeApplier{})

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !report.Quiet() {
		t.Errorf("converged run should be quiet, got %+v", report)
	}
}

func TestRunnerDryRunSkipsApply(t *testing.T) {
	links := []ChatLink{native("https://open.spotify.com/track/id2", "id2")}
	planner := &fakePlanner{plan: []SyncOp{
		{Kind: OpAppend, TrackID: "id2"},
		{Kind: OpRemove, TrackID: "id9", Pos: 0},
	}}

	applier := &fakeApplier{err: errors.New("dry run must not apply")}

	runner := testRunner(t, &fakeSource{text: "chat"}, &fakeExtractor{links: links},
		&fakePlaylist{current: []string{"id9"}, tracks: map[string]Track{}}, planner, applier)
	runner.config.Sync.DryRun = true

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %v, dry run must never reach the applier", report.Issues)
	}
	if report.OpsApplied != 0 {
		t.Errorf("OpsApplied = %d, want 0", report.OpsApplied)
	}
	if report.OpsPlanned != 2 {
		t.Errorf("OpsPlanned = %d, want 2", report.OpsPlanned)
	}
	if report.Incomplete() {
		t.Error("dry run should not read as an incomplete sync")
	}
	if report.Removed != 1 {
		t.Errorf("Removed = %d, want 1 (would-be count)", report.Removed)
	}
}

func TestRunnerPartialApplyBecomesIssue(t *testing.T) {
	links := []ChatLink{
		native("https://open.spotify.com/track/id2", "id2"),
		native("https://open.spotify.com/track/id3", "id3"),
	}
	planner := &fakePlanner{plan: []SyncOp{
		{Kind: OpAppend, TrackID: "id2"},
		{Kind: OpAppend, TrackID: "id3"},
	}}
	applier := &fakeApplier{
		result: &ApplyResult{Planned: 2, Applied: 1},
		err:    errors.New("sync aborted at op 2/2 (append id3): 502"),
	}
	playlist := &fakePlaylist{tracks: map[string]Track{
		"id2": {ID: "id2", Title: "One", Artist: "A"},
	}}

	runner := testRunner(t, &fakeSource{text: "chat"}, &fakeExtractor{links: links}, playlist, planner, applier)

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("partial application must not be fatal, got: %v", err)
	}
	if !report.Incomplete() {
		t.Error("report should be incomplete")
	}
	if len(report.Issues) != 1 || report.Issues[0].Stage != "apply" {
		t.Errorf("Issues = %v, want one apply issue", report.Issues)
	}
	if len(report.Added) != 1 || report.Added[0].ID != "id2" {
		t.Errorf("Added = %v, want only the applied append", report.Added)
	}
}
