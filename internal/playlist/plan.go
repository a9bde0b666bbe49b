// Package playlist computes and executes the plan that converges the
// remote playlist onto the target sequence.
package playlist

import (
	"sort"

	"go.uber.org/zap"

	"vibesync/internal/core"
)

// Planner diffs the current playlist against the target sequence and
// emits the operations converging one onto the other. Ops are ordered so
// each is valid against the playlist state as of its application point.
type Planner struct {
	logger *zap.Logger
}

func NewPlanner(logger *zap.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan computes the SyncPlan for one run. Under append-only policy only
// append ops are emitted; under full reorder the plan transforms current
// into exactly target using removes, minimal moves and positioned inserts.
// A converged playlist yields an empty plan under both policies.
func (p *Planner) Plan(current, target []string, fullReorder bool) []core.SyncOp {
	var plan []core.SyncOp
	if fullReorder {
		plan = p.planFullReorder(current, target)
	} else {
		plan = p.planAppendOnly(current, target)
	}

	p.logger.Debug("plan computed",
		zap.Bool("full_reorder", fullReorder),
		zap.Int("current", len(current)),
		zap.Int("target", len(target)),
		zap.Int("ops", len(plan)))

	return plan
}

// planAppendOnly emits appends for target tracks missing from current,
// in target order. Existing membership and order are never touched.
func (p *Planner) planAppendOnly(current, target []string) []core.SyncOp {
	onPlaylist := make(map[string]struct{}, len(current))
	for _, id := range current {
		onPlaylist[id] = struct{}{}
	}

	var plan []core.SyncOp
	pos := len(current)
	for _, id := range target {
		if _, ok := onPlaylist[id]; ok {
			continue
		}
		plan = append(plan, core.SyncOp{Kind: core.OpAppend, TrackID: id, Pos: pos})
		pos++
	}

	return plan
}

// planFullReorder emits removes first (positions descending), then moves
// for kept tracks out of relative order, then inserts for new tracks at
// their exact target index. Move count is minimal: tracks on the longest
// increasing subsequence of target indices stay put, every other kept
// track moves exactly once.
func (p *Planner) planFullReorder(current, target []string) []core.SyncOp {
	targetIdx := make(map[string]int, len(target))
	for i, id := range target {
		targetIdx[id] = i
	}

	var plan []core.SyncOp

	// Removes, rightmost first so earlier indices stay valid.
	state := make([]string, 0, len(current))
	for i := len(current) - 1; i >= 0; i-- {
		if _, keep := targetIdx[current[i]]; !keep {
			plan = append(plan, core.SyncOp{Kind: core.OpRemove, TrackID: current[i], Pos: i})
		}
	}
	for _, id := range current {
		if _, keep := targetIdx[id]; keep {
			state = append(state, id)
		}
	}

	// Moves for kept tracks. LIS members are already in correct relative
	// order; the rest are placed in increasing target-index order, each
	// directly after the rightmost already-placed smaller track.
	placed := lisMembers(state, targetIdx)

	var movers []string
	for _, id := range state {
		if _, ok := placed[id]; !ok {
			movers = append(movers, id)
		}
	}
	sort.Slice(movers, func(i, j int) bool {
		return targetIdx[movers[i]] < targetIdx[movers[j]]
	})

	for _, id := range movers {
		from := indexOf(state, id)
		dest := 0
		for i, e := range state {
			if i == from {
				continue
			}
			if _, ok := placed[e]; ok && targetIdx[e] < targetIdx[id] {
				dest = i + 1
			}
		}
		if from < dest {
			dest--
		}

		if dest != from {
			plan = append(plan, core.SyncOp{Kind: core.OpMove, TrackID: id, Pos: dest})
			state = moveInSlice(state, from, dest)
		}
		placed[id] = struct{}{}
	}

	// Inserts for new tracks, in increasing target index. The kept tracks
	// are now in exact target relative order, so the destination is the
	// count of present tracks with a smaller target index.
	var inserts []string
	present := make(map[string]struct{}, len(state))
	for _, id := range state {
		present[id] = struct{}{}
	}
	for _, id := range target {
		if _, ok := present[id]; !ok {
			inserts = append(inserts, id)
		}
	}

	for _, id := range inserts {
		dest := 0
		for _, e := range state {
			if targetIdx[e] < targetIdx[id] {
				dest++
			}
		}
		plan = append(plan, core.SyncOp{Kind: core.OpInsertAt, TrackID: id, Pos: dest})
		state = append(state[:dest], append([]string{id}, state[dest:]...)...)
	}

	return plan
}

// lisMembers returns the tracks forming a longest increasing subsequence
// of target indices over state. Patience sorting, O(n log n).
func lisMembers(state []string, targetIdx map[string]int) map[string]struct{} {
	n := len(state)
	members := make(map[string]struct{}, n)
	if n == 0 {
		return members
	}

	tails := make([]int, 0, n)   // index into state of the smallest tail per length
	prev := make([]int, n)       // predecessor chain
	for i := range prev {
		prev[i] = -1
	}

	for i, id := range state {
		v := targetIdx[id]
		lo := sort.Search(len(tails), func(k int) bool {
			return targetIdx[state[tails[k]]] >= v
		})
		if lo > 0 {
			prev[i] = tails[lo-1]
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		members[state[i]] = struct{}{}
	}

	return members
}

func indexOf(state []string, id string) int {
	for i, e := range state {
		if e == id {
			return i
		}
	}
	return -1
}

func moveInSlice(state []string, from, to int) []string {
	id := state[from]
	state = append(state[:from], state[from+1:]...)
	state = append(state[:to], append([]string{id}, state[to:]...)...)
	return state
}
