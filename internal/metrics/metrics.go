// Package metrics pushes per-run counters to a Prometheus Pushgateway.
// The process is batch-style, so there is no scrape listener; everything
// is pushed once at run completion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"vibesync/internal/core"
)

type Pusher struct {
	url    string
	job    string
	logger *zap.Logger

	registry       *prometheus.Registry
	linksExtracted prometheus.Gauge
	linksResolved  prometheus.Gauge
	linksSkipped   prometheus.Gauge
	tracksAdded    prometheus.Gauge
	tracksMoved    prometheus.Gauge
	tracksRemoved  prometheus.Gauge
	opsPlanned     prometheus.Gauge
	opsApplied     prometheus.Gauge
	runDuration    prometheus.Gauge
	runSuccess     prometheus.Gauge
	dryRun         prometheus.Gauge
}

// NewPusher builds a pusher. An empty URL disables pushing entirely.
func NewPusher(url, job string, logger *zap.Logger) *Pusher {
	p := &Pusher{
		url:      url,
		job:      job,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vibesync",
			Name:      name,
			Help:      help,
		})
		p.registry.MustRegister(g)
		return g
	}

	p.linksExtracted = gauge("links_extracted", "Music links found in the chat export.")
	p.linksResolved = gauge("links_resolved", "Links resolved to a Spotify track ID.")
	p.linksSkipped = gauge("links_skipped", "Links recorded as issues and skipped.")
	p.tracksAdded = gauge("tracks_added", "Tracks added to the playlist.")
	p.tracksMoved = gauge("tracks_moved", "Tracks moved within the playlist.")
	p.tracksRemoved = gauge("tracks_removed", "Tracks removed from the playlist.")
	p.opsPlanned = gauge("ops_planned", "Playlist mutations planned.")
	p.opsApplied = gauge("ops_applied", "Playlist mutations applied.")
	p.runDuration = gauge("run_duration_seconds", "Wall-clock run duration.")
	p.runSuccess = gauge("run_success", "1 when the run completed without fatal error.")
	p.dryRun = gauge("dry_run", "1 when the run planned but did not apply mutations.")

	return p
}

// Enabled reports whether a gateway URL is configured.
func (p *Pusher) Enabled() bool {
	return p.url != ""
}

// Push sends the run's counters. Failures are logged and swallowed;
// metrics never affect run outcome.
func (p *Pusher) Push(report *core.RunReport, fatal bool) {
	if !p.Enabled() {
		return
	}

	p.linksExtracted.Set(float64(report.LinksExtracted))
	p.linksResolved.Set(float64(report.LinksResolved))
	p.linksSkipped.Set(float64(len(report.Issues)))
	p.tracksAdded.Set(float64(len(report.Added)))
	p.tracksMoved.Set(float64(report.Moved))
	p.tracksRemoved.Set(float64(report.Removed))
	p.opsPlanned.Set(float64(report.OpsPlanned))
	p.opsApplied.Set(float64(report.OpsApplied))
	p.runDuration.Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
	if report.DryRun {
		p.dryRun.Set(1)
	}
	if fatal {
		p.runSuccess.Set(0)
	} else {
		p.runSuccess.Set(1)
	}

	err := push.New(p.url, p.job).
		Gatherer(p.registry).
		Grouping("run_id", report.RunID).
		Push()
	if err != nil {
		p.logger.Warn("metrics push failed", zap.String("gateway", p.url), zap.Error(err))
		return
	}

	p.logger.Debug("metrics pushed", zap.String("gateway", p.url))
}
