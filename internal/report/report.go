// Package report appends the human-readable run summary line.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"vibesync/internal/core"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// Reporter appends at most one line per run to the report log. Quiet
// runs (nothing changed, no issues) do not even open the file.
type Reporter struct {
	path        string
	location    *time.Location
	maxExamples int
	logger      *zap.Logger
	now         func() time.Time
}

func NewReporter(path, timezone string, maxExamples int, logger *zap.Logger) (*Reporter, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", timezone, err)
	}

	return &Reporter{
		path:        path,
		location:    location,
		maxExamples: maxExamples,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Write appends the report line for the run. Dry runs and quiet runs
// produce no line.
func (r *Reporter) Write(report *core.RunReport) error {
	if report.DryRun || report.Quiet() {
		return nil
	}

	line := r.Format(report)

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open report log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append report line: %w", err)
	}

	r.logger.Debug("report line written", zap.String("file", r.path))
	return nil
}

// Format renders the single report line for a run.
func (r *Reporter) Format(report *core.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] ", r.now().In(r.location).Format(timestampLayout))

	if len(report.Added) > 0 {
		noun := "songs"
		if len(report.Added) == 1 {
			noun = "song"
		}
		fmt.Fprintf(&b, "%d %s added - %s", len(report.Added), noun, formatExamples(report.Added, r.maxExamples))
	} else {
		b.WriteString("no songs added")
	}

	if report.Moved > 0 {
		fmt.Fprintf(&b, "; %d moved", report.Moved)
	}
	if report.Removed > 0 {
		fmt.Fprintf(&b, "; %d removed", report.Removed)
	}
	if skipped := len(report.Issues); skipped > 0 {
		noun := "links"
		if skipped == 1 {
			noun = "link"
		}
		fmt.Fprintf(&b, "; %d %s skipped", skipped, noun)
	}
	if report.Incomplete() {
		fmt.Fprintf(&b, "; sync incomplete: %d/%d ops applied", report.OpsApplied, report.OpsPlanned)
	}

	return b.String()
}

func formatExamples(added []core.TrackSummary, maxExamples int) string {
	examples := make([]string, 0, maxExamples)
	for i, track := range added {
		if i >= maxExamples {
			break
		}
		if track.Title == "" {
			// Detail lookup failed; fall back to the bare ID.
			examples = append(examples, track.ID)
			continue
		}
		examples = append(examples, fmt.Sprintf("%s by %s", track.Title, track.Artist))
	}

	s := strings.Join(examples, ", ")
	if rest := len(added) - maxExamples; rest > 0 {
		s += fmt.Sprintf(" (+%d more)", rest)
	}
	return s
}
