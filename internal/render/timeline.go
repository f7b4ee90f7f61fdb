package render

import (
	"io"

	"timetable/internal/model"
	"timetable/internal/schedule"
)

// Timeline geometry.
const (
	pixelsPerMinute = 1.3
	gutterWidth     = 96
	laneGap         = 8
	gridMinutes     = 30
	minCardHeight   = 16
)

type timeLabel struct {
	Minute int
	Top    int
}

type timelineCard struct {
	card
	Top       int
	Height    int
	Lane      int
	LaneCount int
	// GapTotal is the horizontal space taken by gaps between the group's lanes.
	GapTotal int
}

// Timeline renders events as cards on a vertical time axis. Overlapping
// events are placed side by side in lanes.
func Timeline(w io.Writer, day string, events []model.Event, opts Options) (bool, error) {
	timed := schedule.Timed(events)
	if len(timed) == 0 {
		return false, nil
	}

	dayStart, dayEnd := timed[0].Start(), timed[0].End()
	for _, ev := range timed[1:] {
		dayStart = min(dayStart, ev.Start())
		dayEnd = max(dayEnd, ev.End())
	}
	dayStart = floorTo(dayStart, gridMinutes)
	dayEnd = ceilTo(dayEnd, gridMinutes)

	var labels []timeLabel
	for m := dayStart; m <= dayEnd; m += gridMinutes {
		labels = append(labels, timeLabel{Minute: m, Top: offset(m-dayStart) - 6})
	}

	var cards []timelineCard
	for _, le := range schedule.AssignLanes(timed) {
		ev := le.Event
		c := newCard(ev, opts)
		// The timeline folds the details into one line.
		if len(c.Details) > 1 {
			c.Details = []string{c.Details[0] + " / " + c.Details[1]}
		}
		cards = append(cards, timelineCard{
			card:      c,
			Top:       offset(ev.Start() - dayStart),
			Height:    max(minCardHeight, offset(ev.Duration())),
			Lane:      le.Lane,
			LaneCount: le.LaneCount,
			GapTotal:  (le.LaneCount - 1) * laneGap,
		})
	}

	data := struct {
		page
		Height  int
		Gutter  int
		LaneGap int
		Labels  []timeLabel
		Cards   []timelineCard
	}{
		page:    newPage(day, events, opts),
		Height:  offset(dayEnd-dayStart) + 1,
		Gutter:  gutterWidth,
		LaneGap: laneGap,
		Labels:  labels,
		Cards:   cards,
	}
	return true, tmpl.ExecuteTemplate(w, "timeline.html", data)
}

func offset(minutes int) int {
	return int(float64(minutes) * pixelsPerMinute)
}

func floorTo(m, step int) int {
	if m < 0 {
		return -ceilTo(-m, step)
	}
	return m / step * step
}

func ceilTo(m, step int) int {
	if m < 0 {
		return -floorTo(-m, step)
	}
	return (m + step - 1) / step * step
}
