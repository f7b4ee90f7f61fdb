// Package schedule holds the interval logic used to lay out a conference day:
// per-room conflict resolution and lane assignment for side-by-side display.
//
// Every function here is pure. Inputs are never mutated, so concurrent renders
// may share nothing but their own slices. Events passed in must be timed
// (see Timed); untimed events are the caller's job to filter.
package schedule

import (
	"sort"

	"timetable/internal/model"
)

// Overlaps reports whether the half-open intervals [start, end) of a and b
// intersect. Intervals that only touch at an endpoint do not overlap.
func Overlaps(a, b model.Event) bool {
	return a.Start() < b.End() && b.Start() < a.End()
}

// Timed returns the events that carry both a start and an end minute.
func Timed(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Timed() {
			out = append(out, ev)
		}
	}
	return out
}

// SortByInterval returns a copy of events stably sorted by (start, end).
// Events with equal keys keep their input order.
func SortByInterval(events []model.Event) []model.Event {
	sorted := append([]model.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start() != sorted[j].Start() {
			return sorted[i].Start() < sorted[j].Start()
		}
		return sorted[i].End() < sorted[j].End()
	})
	return sorted
}
