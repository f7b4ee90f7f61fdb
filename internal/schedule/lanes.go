package schedule

import "timetable/internal/model"

// LaneEvent is an event annotated with its display lane.
//
// Lane is the 0-based lane within the event's overlap group and LaneCount the
// number of lanes that group needs. Groups that do not overlap each other are
// numbered independently.
type LaneEvent struct {
	Event     model.Event
	Lane      int
	LaneCount int
}

// GroupOverlaps splits events into clusters of transitively overlapping
// events. Events are sorted by (start, end); a new cluster starts whenever an
// event begins at or after the latest end seen in the current one.
func GroupOverlaps(events []model.Event) [][]model.Event {
	var (
		groups  [][]model.Event
		current []model.Event
		maxEnd  int
	)
	for _, ev := range SortByInterval(events) {
		if len(current) > 0 && ev.Start() >= maxEnd {
			groups = append(groups, current)
			current = nil
		}
		if len(current) == 0 || ev.End() > maxEnd {
			maxEnd = ev.End()
		}
		current = append(current, ev)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// AssignLanes lays events out for the day timeline. Each overlap group is
// packed on its own, so a lone event gets LaneCount 1 even when another part
// of the day needs several lanes. The result holds every input event exactly
// once, in (start, end) order.
func AssignLanes(events []model.Event) []LaneEvent {
	out := make([]LaneEvent, 0, len(events))
	for _, group := range GroupOverlaps(events) {
		lanes, count := firstFit(group)
		if count < 1 {
			count = 1
		}
		for i, ev := range group {
			out = append(out, LaneEvent{Event: ev, Lane: lanes[i], LaneCount: count})
		}
	}
	return out
}

// AssignLaneBuckets packs events into the fewest lanes such that no two
// events in a lane overlap, and returns the lanes themselves. Each lane is
// ordered by start time. Used to spread misc-room events over synthetic
// columns.
func AssignLaneBuckets(events []model.Event) [][]model.Event {
	sorted := SortByInterval(events)
	lanes, count := firstFit(sorted)
	buckets := make([][]model.Event, count)
	for i, ev := range sorted {
		buckets[lanes[i]] = append(buckets[lanes[i]], ev)
	}
	return buckets
}

// firstFit is greedy interval partitioning over events already sorted by
// (start, end): each event goes into the first lane, in creation order, whose
// last event ends at or before it starts, or into a new lane. It returns the
// lane of each event and the number of lanes opened, which is the maximum
// overlap depth of the input.
func firstFit(sorted []model.Event) ([]int, int) {
	lanes := make([]int, len(sorted))
	ends := make([]int, 0)
	for i, ev := range sorted {
		placed := false
		for l, end := range ends {
			if ev.Start() >= end {
				lanes[i] = l
				ends[l] = ev.End()
				placed = true
				break
			}
		}
		if !placed {
			lanes[i] = len(ends)
			ends = append(ends, ev.End())
		}
	}
	return lanes, len(ends)
}
