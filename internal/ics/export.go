// Package ics exports the stored itinerary as an iCalendar feed so it can be
// imported into a regular calendar app.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "timetable/internal/log"
	"timetable/internal/model"
)

// uidNamespace scopes the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("timetable:event"))

// ExportOptions controls Export.
type ExportOptions struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string

	// Location is the zone the itinerary's clock times are in.
	Location *time.Location

	// Start, if non-zero, is the first conference day. It dates events
	// whose itinerary line had no parsable date.
	Start time.Time

	// Stamp is written as DTSTAMP. Zero means now.
	Stamp time.Time
}

// ExportResult reports what Export wrote.
type ExportResult struct {
	Written int
	// Skipped counts untimed events and events with no resolvable date.
	Skipped int
}

// Export writes one VEVENT per timed event. UIDs are derived from the
// event's date, time, room and title, so re-importing a re-parsed itinerary
// updates entries instead of duplicating them.
func Export(w io.Writer, events []model.Event, opts ExportOptions) (ExportResult, error) {
	var res ExportResult
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	var byDay map[string]time.Time
	if !opts.Start.IsZero() {
		var err error
		byDay, err = DayDates(opts.Start.In(loc))
		if err != nil {
			return res, err
		}
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//timetable//itinerary export//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	seen := make(map[string]int, len(events))
	for _, ev := range events {
		if !ev.Timed() {
			res.Skipped++
			continue
		}
		date, ok := eventDate(ev, loc, byDay)
		if !ok {
			appLog.Debug("ics: no date for event", "id", ev.ID, "day", ev.DayName)
			res.Skipped++
			continue
		}
		start := at(date, ev.Start())
		end := at(date, ev.End())
		if end.Before(start) {
			end = end.AddDate(0, 0, 1)
		}

		key := fmt.Sprintf("%s|%d|%d|%s|%s", date.Format(time.DateOnly), ev.Start(), ev.End(), ev.Room, ev.Title)
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}

		vev := cal.AddEvent(uuid.NewSHA1(uidNamespace, []byte(key)).String())
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(start)
		vev.SetEndAt(end)
		title := ev.Title
		if title == "" {
			title = "(Untitled)"
		}
		vev.SetSummary(title)
		if ev.Room != "" {
			vev.SetLocation(ev.Room)
		}
		if desc := description(ev); desc != "" {
			vev.SetDescription(desc)
		}
		res.Written++
	}

	if err := cal.SerializeTo(w); err != nil {
		return res, fmt.Errorf("ics: serialize: %w", err)
	}
	return res, nil
}

// eventDate resolves the calendar date of ev: its parsed ISO date, else the
// conference week date of its weekday.
func eventDate(ev model.Event, loc *time.Location, byDay map[string]time.Time) (time.Time, bool) {
	if ev.DateISO != "" {
		if d, err := time.ParseInLocation(time.DateOnly, ev.DateISO, loc); err == nil {
			return d, true
		}
	}
	d, ok := byDay[ev.DayName]
	return d, ok
}

func at(date time.Time, minutes int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location())
}

func description(ev model.Event) string {
	var lines []string
	if ev.Session != "" && ev.Session != ev.Title {
		lines = append(lines, "Session: "+ev.Session)
	}
	if ev.TalkTitle != "" && ev.TalkTitle != ev.Title {
		lines = append(lines, "Talk: "+ev.TalkTitle)
	}
	return strings.Join(lines, "\n")
}
