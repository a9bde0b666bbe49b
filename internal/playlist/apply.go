package playlist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vibesync/internal/core"
)

// Service is the playlist-mutation surface the applier drives.
type Service interface {
	AddTracks(ctx context.Context, playlistID string, ids ...string) error
	RemoveTracks(ctx context.Context, playlistID string, ids ...string) error
	Reorder(ctx context.Context, playlistID string, rangeStart, insertBefore int) error
}

// RetryPolicy is the applier's per-batch retry schedule. It is an explicit
// parameter so tests can exercise it without waiting on library defaults.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
}

// Backoff returns the wait before the given retry attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Applier executes a SyncPlan in emitted order, batching adjacent
// same-kind ops up to the service batch limit. It keeps a shadow copy of
// the playlist so every index it sends is valid at that point.
type Applier struct {
	svc        Service
	playlistID string
	batchSize  int
	retry      RetryPolicy
	limiter    *rate.Limiter
	transient  func(error) bool
	logger     *zap.Logger

	// sleep is swapped out by tests; real runs wait on the wall clock.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewApplier(
	svc Service,
	playlistID string,
	batchSize int,
	retry RetryPolicy,
	requestsPerSecond float64,
	transient func(error) bool,
	logger *zap.Logger,
) *Applier {
	if transient == nil {
		transient = func(error) bool { return false }
	}
	return &Applier{
		svc:        svc,
		playlistID: playlistID,
		batchSize:  batchSize,
		retry:      retry,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		transient:  transient,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Apply executes the plan against the remote playlist. On retry
// exhaustion it aborts the remainder and returns the partial result
// alongside the error; the caller decides how to report it. Applying an
// empty plan touches nothing.
func (a *Applier) Apply(ctx context.Context, current []string, plan []core.SyncOp) (*core.ApplyResult, error) {
	result := &core.ApplyResult{
		Planned: len(plan),
		State:   append([]string(nil), current...),
	}

	for _, batch := range coalesce(plan, a.batchSize) {
		if err := a.applyBatch(ctx, result, batch); err != nil {
			return result, fmt.Errorf("sync aborted at op %d/%d (%s %s): %w",
				result.Applied+1, result.Planned, batch[0].Kind, batch[0].TrackID, err)
		}
		result.Applied += len(batch)
	}

	return result, nil
}

// coalesce groups the plan into batches: runs of appends and removes are
// chunked at the batch limit; moves and positioned inserts go one by one
// because a reorder call relocates a single range.
func coalesce(plan []core.SyncOp, batchSize int) [][]core.SyncOp {
	var batches [][]core.SyncOp

	for i := 0; i < len(plan); {
		op := plan[i]
		if op.Kind == core.OpMove || op.Kind == core.OpInsertAt {
			batches = append(batches, plan[i:i+1])
			i++
			continue
		}

		j := i
		for j < len(plan) && plan[j].Kind == op.Kind && j-i < batchSize {
			j++
		}
		batches = append(batches, plan[i:j])
		i = j
	}

	return batches
}

func (a *Applier) applyBatch(ctx context.Context, result *core.ApplyResult, batch []core.SyncOp) error {
	switch batch[0].Kind {
	case core.OpAppend:
		ids := trackIDs(batch)
		if err := a.call(ctx, func() error {
			return a.svc.AddTracks(ctx, a.playlistID, ids...)
		}); err != nil {
			return err
		}
		result.State = append(result.State, ids...)
		return nil

	case core.OpRemove:
		ids := trackIDs(batch)
		if err := a.call(ctx, func() error {
			return a.svc.RemoveTracks(ctx, a.playlistID, ids...)
		}); err != nil {
			return err
		}
		for _, id := range ids {
			if i := indexOf(result.State, id); i >= 0 {
				result.State = append(result.State[:i], result.State[i+1:]...)
			}
		}
		return nil

	case core.OpInsertAt:
		return a.applyInsert(ctx, result, batch[0])

	case core.OpMove:
		return a.applyMove(ctx, result, batch[0])
	}

	return fmt.Errorf("unknown op kind %v", batch[0].Kind)
}

// applyInsert realizes a positioned insert as append-then-reorder: the
// service has no direct insert-at, so the track lands at the end and is
// moved into place.
func (a *Applier) applyInsert(ctx context.Context, result *core.ApplyResult, op core.SyncOp) error {
	if err := a.call(ctx, func() error {
		return a.svc.AddTracks(ctx, a.playlistID, op.TrackID)
	}); err != nil {
		return err
	}
	result.State = append(result.State, op.TrackID)

	from := len(result.State) - 1
	if op.Pos >= from {
		// Appending already placed the track at its target index.
		return nil
	}

	// InsertBefore is evaluated against the pre-move list; moving a track
	// leftward means the destination index is unshifted.
	if err := a.call(ctx, func() error {
		return a.svc.Reorder(ctx, a.playlistID, from, op.Pos)
	}); err != nil {
		return err
	}
	result.State = moveInSlice(result.State, from, op.Pos)
	return nil
}

func (a *Applier) applyMove(ctx context.Context, result *core.ApplyResult, op core.SyncOp) error {
	from := indexOf(result.State, op.TrackID)
	if from < 0 {
		return fmt.Errorf("move source %s not on playlist", op.TrackID)
	}
	if from == op.Pos {
		return nil
	}

	// The service's insert-before index is evaluated before the range is
	// lifted out: moving right needs dest+1, moving left uses dest as-is.
	insertBefore := op.Pos
	if from < op.Pos {
		insertBefore = op.Pos + 1
	}

	if err := a.call(ctx, func() error {
		return a.svc.Reorder(ctx, a.playlistID, from, insertBefore)
	}); err != nil {
		return err
	}
	result.State = moveInSlice(result.State, from, op.Pos)
	return nil
}

// call runs one API call under the rate limiter, retrying transient
// failures per the policy. Non-transient errors fail immediately.
func (a *Applier) call(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !a.transient(lastErr) {
			return lastErr
		}
		if attempt == a.retry.MaxAttempts {
			break
		}

		wait := a.retry.Backoff(attempt)
		a.logger.Warn("transient failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(lastErr))
		if err := a.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", a.retry.MaxAttempts, lastErr)
}

func trackIDs(ops []core.SyncOp) []string {
	ids := make([]string, len(ops))
	for i, op := range ops {
		ids[i] = op.TrackID
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
