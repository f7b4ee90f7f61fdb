package schedule

import (
	"sort"

	"timetable/internal/model"
)

type roomKey struct {
	day  string
	room string
}

// Dedup applies ResolveConflicts to every (day, room) pair of a whole event
// database. Events without times are passed through untouched. The result is
// ordered by (day index, start, end, id); removed counts dropped events.
func Dedup(events []model.Event) (kept []model.Event, removed int) {
	grouped := make(map[roomKey][]model.Event)
	order := make([]roomKey, 0)
	var passthrough []model.Event

	for _, ev := range events {
		if !ev.Timed() {
			passthrough = append(passthrough, ev)
			continue
		}
		k := roomKey{day: ev.DayName, room: ev.Room}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], ev)
	}

	kept = make([]model.Event, 0, len(events))
	for _, k := range order {
		group := grouped[k]
		resolved := ResolveConflicts(group)
		kept = append(kept, resolved...)
		removed += len(group) - len(resolved)
	}
	kept = append(kept, passthrough...)

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.DayIndex != b.DayIndex {
			return a.DayIndex < b.DayIndex
		}
		if sa, sb := minuteOrZero(a.StartMin), minuteOrZero(b.StartMin); sa != sb {
			return sa < sb
		}
		if ea, eb := minuteOrZero(a.EndMin), minuteOrZero(b.EndMin); ea != eb {
			return ea < eb
		}
		return a.ID < b.ID
	})
	return kept, removed
}

func minuteOrZero(m *int) int {
	if m == nil {
		return 0
	}
	return *m
}
