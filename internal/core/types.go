// Package core holds the data model and run orchestration for the
// chat-export to Spotify playlist sync.
package core

import (
	"context"
	"time"
)

// Platform classifies where an extracted link points.
type Platform int

const (
	// PlatformNative marks links already pointing at Spotify.
	PlatformNative Platform = iota
	// PlatformForeign marks single-track links on another music service.
	PlatformForeign
	// PlatformForeignPlaylist marks playlist/set links on another service,
	// which are never resolved and count as issues.
	PlatformForeignPlaylist
)

func (p Platform) String() string {
	switch p {
	case PlatformNative:
		return "native"
	case PlatformForeign:
		return "foreign"
	case PlatformForeignPlaylist:
		return "foreign_playlist"
	default:
		return "unknown"
	}
}

// ChatLink is one music link found in the chat text. Immutable once parsed.
type ChatLink struct {
	Platform Platform
	Service  string // e.g. "spotify", "youtube", "applemusic"
	RawURL   string
	CleanURL string // tracking params stripped, trailing punctuation trimmed
	TrackID  string // Spotify track ID, native links only (empty for short links)
	Position int    // first-appearance index in the chat text stream
}

// MatchStatus is the outcome of resolving a foreign link.
type MatchStatus int

const (
	// StatusMatched means a candidate scored above the confidence threshold.
	StatusMatched MatchStatus = iota
	// StatusAmbiguous means the top candidates scored too close together
	// and the tie was not settled; the rank leader is kept.
	StatusAmbiguous
	// StatusUnmatched means no candidate was acceptable; the link is dropped.
	StatusUnmatched
)

func (s MatchStatus) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusAmbiguous:
		return "ambiguous"
	case StatusUnmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// ResolvedTrack is the resolver's verdict for one foreign ChatLink. Native
// links map to themselves with Confidence 1.0 and StatusMatched.
type ResolvedTrack struct {
	ID         string // Spotify track ID, empty unless matched
	Title      string
	Artist     string
	Source     ChatLink
	Confidence float64
	Status     MatchStatus
	Reason     string // set when Status != matched
}

// Track is the display metadata of a Spotify track.
type Track struct {
	ID     string
	Title  string
	Artist string
	Album  string
	URL    string
}

// OpKind is the kind of one playlist mutation.
type OpKind int

const (
	// OpAppend adds a track at the end of the playlist.
	OpAppend OpKind = iota
	// OpInsertAt adds a track at a specific index.
	OpInsertAt
	// OpRemove removes a track from the playlist.
	OpRemove
	// OpMove relocates a track already on the playlist.
	OpMove
)

func (k OpKind) String() string {
	switch k {
	case OpAppend:
		return "append"
	case OpInsertAt:
		return "insert_at"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	default:
		return "unknown"
	}
}

// SyncOp is one playlist mutation. Pos is the index the track occupies
// after the op is applied, valid against the playlist state as of that
// op's application point. Append and remove ops ignore Pos.
type SyncOp struct {
	Kind    OpKind
	TrackID string
	Pos     int
}

// ApplyResult reports how much of a plan the applier executed.
type ApplyResult struct {
	Planned int
	Applied int
	State   []string // playlist contents after the last applied op
}

// TrackSummary names an added track in the report line.
type TrackSummary struct {
	ID     string
	Title  string
	Artist string
}

// Issue is one non-fatal problem recorded during a run.
type Issue struct {
	URL    string
	Stage  string // "extract", "resolve", "apply"
	Reason string
}

// RunReport is the explicit run-result object handed to the reporter and
// the metrics pusher at the end of a run.
type RunReport struct {
	RunID          string
	Policy         string
	DryRun         bool
	LinksExtracted int
	LinksResolved  int
	Added          []TrackSummary
	Moved          int
	Removed        int
	Issues         []Issue
	OpsPlanned     int
	OpsApplied     int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// AddIssue records a non-fatal problem.
func (r *RunReport) AddIssue(url, stage, reason string) {
	r.Issues = append(r.Issues, Issue{URL: url, Stage: stage, Reason: reason})
}

// Changed reports whether the run mutated the playlist.
func (r *RunReport) Changed() bool {
	return len(r.Added) > 0 || r.Moved > 0 || r.Removed > 0
}

// Quiet reports whether the run warrants no report line at all.
func (r *RunReport) Quiet() bool {
	return !r.Changed() && len(r.Issues) == 0
}

// Incomplete reports whether part of the plan did not apply. A dry run
// applies nothing on purpose, so it never counts as incomplete.
func (r *RunReport) Incomplete() bool {
	return !r.DryRun && r.OpsApplied < r.OpsPlanned
}

// Source yields the raw chat text for a run.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// PlaylistService is the Spotify surface the run needs.
type PlaylistService interface {
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]string, error)
	GetTracks(ctx context.Context, ids []string) ([]Track, error)
	SearchTrack(ctx context.Context, query string) ([]Track, error)
	AddTracks(ctx context.Context, playlistID string, ids ...string) error
	RemoveTracks(ctx context.Context, playlistID string, ids ...string) error
	Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore int) error
	ExtractTrackID(rawURL string) (string, error)
}

// Resolver turns a foreign ChatLink into a ResolvedTrack. Failures are
// expressed through the Status field, never as an error.
type Resolver interface {
	Resolve(ctx context.Context, link ChatLink) ResolvedTrack
}

// Planner computes the SyncPlan converging current onto target.
type Planner interface {
	Plan(current, target []string, fullReorder bool) []SyncOp
}

// Applier executes a SyncPlan against the remote playlist.
type Applier interface {
	Apply(ctx context.Context, current []string, plan []SyncOp) (*ApplyResult, error)
}

// SeenIndex answers membership questions while building the target sequence.
type SeenIndex interface {
	Has(trackID string) bool
	Add(trackID string)
	Size() int
}
