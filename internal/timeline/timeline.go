// Package timeline implements the Cut/Timeline algebra: the
// invariant-preserving data model that maps detected silences (and any
// user edits) to a sorted, non-overlapping keep-segment list.
//
// The derivation is grounded on the reference project's
// Project.get_keep_segments: sort the enabled removable cuts by start,
// sweep left to right with a cursor, and emit the gaps between cuts.
package timeline

import (
	"sort"

	"github.com/farcloser/autocut/internal/types"
)

// Timeline is an ordered-by-start sequence of Cuts associated with a
// MediaInfo's duration. Cuts may be added unsorted; every derived
// keep-segment list is produced from a sorted traversal.
type Timeline struct {
	Duration float64
	cuts     []types.Cut
}

// New builds a Timeline over the given duration (seconds) and initial cuts.
func New(duration float64, cuts []types.Cut) *Timeline {
	owned := make([]types.Cut, len(cuts))
	copy(owned, cuts)

	return &Timeline{Duration: duration, cuts: owned}
}

// Cuts returns a copy of the timeline's current cuts, in insertion order.
func (t *Timeline) Cuts() []types.Cut {
	out := make([]types.Cut, len(t.cuts))
	copy(out, t.cuts)

	return out
}

// AddCut appends a new cut to the timeline.
func (t *Timeline) AddCut(c types.Cut) {
	t.cuts = append(t.cuts, c)
}

// RemoveCut deletes the cut with the given id, if present.
func (t *Timeline) RemoveCut(id string) {
	for i, c := range t.cuts {
		if c.ID == id {
			t.cuts = append(t.cuts[:i], t.cuts[i+1:]...)

			return
		}
	}
}

// SetEnabled toggles a cut's Enabled flag by id.
func (t *Timeline) SetEnabled(id string, enabled bool) {
	for i := range t.cuts {
		if t.cuts[i].ID == id {
			t.cuts[i].Enabled = enabled

			return
		}
	}
}

// SetBounds edits a cut's start/end by id.
func (t *Timeline) SetBounds(id string, start, end float64) {
	for i := range t.cuts {
		if t.cuts[i].ID == id {
			t.cuts[i].Start = start
			t.cuts[i].End = end

			return
		}
	}
}

// KeepSegments returns the complement of the union of enabled removable
// cuts, intersected with [0, Duration]. The result is sorted,
// non-overlapping, and covers exactly Duration - TotalCutDuration().
//
// Exact algorithm: sort enabled removable cuts by start; sweep
// left-to-right maintaining cursor = 0; for each cut, if cut.Start >
// cursor emit (cursor, cut.Start), then cursor = max(cursor, cut.End)
// (overlap-safe); after the loop, if cursor < Duration emit (cursor,
// Duration).
func (t *Timeline) KeepSegments() []types.Segment {
	active := make([]types.Cut, 0, len(t.cuts))

	for _, c := range t.cuts {
		if c.IsRemovable() {
			active = append(active, c)
		}
	}

	if len(active) == 0 {
		if t.Duration <= 0 {
			return nil
		}

		return []types.Segment{{Start: 0, End: t.Duration}}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].Start < active[j].Start })

	segments := make([]types.Segment, 0, len(active)+1)
	cursor := 0.0

	for _, c := range active {
		if c.Start > cursor {
			segments = append(segments, types.Segment{Start: cursor, End: c.Start})
		}

		cursor = max(cursor, c.End)
	}

	if cursor < t.Duration {
		segments = append(segments, types.Segment{Start: cursor, End: t.Duration})
	}

	return segments
}

// TotalCutDuration is the source time removed by the enabled removable
// cuts: the length of their union within [0, Duration], so overlapping
// cuts are counted once.
func (t *Timeline) TotalCutDuration() float64 {
	var kept float64

	for _, s := range t.KeepSegments() {
		kept += s.Duration()
	}

	return t.Duration - kept
}

// FinalDuration is the duration remaining after all enabled removable cuts.
func (t *Timeline) FinalDuration() float64 {
	return t.Duration - t.TotalCutDuration()
}
