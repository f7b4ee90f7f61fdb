package schedule

import "timetable/internal/model"

// ResolveConflicts picks which events of a single room (or other shared
// resource) to display when their times overlap.
//
// Events are processed in (start, end) order. An event that overlaps nothing
// already kept is kept. An event that overlaps kept events replaces all of
// them only if it is strictly longer than each one; otherwise it is dropped
// for good, even if a later event would evict the events that beat it.
//
// This is a greedy, online policy and intentionally not globally optimal.
// The result is a subset of events in no particular order.
func ResolveConflicts(events []model.Event) []model.Event {
	resolved := make([]model.Event, 0, len(events))
	for _, ev := range SortByInterval(events) {
		conflicts := make([]int, 0)
		for i, kept := range resolved {
			if Overlaps(ev, kept) {
				conflicts = append(conflicts, i)
			}
		}
		if len(conflicts) == 0 {
			resolved = append(resolved, ev)
			continue
		}
		if !longerThanAll(ev, resolved, conflicts) {
			continue
		}
		resolved = removeIndexes(resolved, conflicts)
		resolved = append(resolved, ev)
	}
	return resolved
}

func longerThanAll(ev model.Event, resolved []model.Event, idx []int) bool {
	d := ev.Duration()
	for _, i := range idx {
		if d <= resolved[i].Duration() {
			return false
		}
	}
	return true
}

// removeIndexes drops the entries at the ascending indexes idx, preserving the
// order of what remains.
func removeIndexes(events []model.Event, idx []int) []model.Event {
	out := events[:0:0]
	next := 0
	for i, ev := range events {
		if next < len(idx) && idx[next] == i {
			next++
			continue
		}
		out = append(out, ev)
	}
	return out
}
