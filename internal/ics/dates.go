package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// conferenceWeek is the recurrence covering one Saturday-to-Friday meeting.
const conferenceWeek = "FREQ=DAILY;COUNT=7"

// DayDates maps weekday names to the dates of the conference week that
// starts on start. Only the date part of start is used.
func DayDates(start time.Time) (map[string]time.Time, error) {
	r, err := rrule.StrToRRule(conferenceWeek)
	if err != nil {
		return nil, fmt.Errorf("ics: conference rule: %w", err)
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	r.DTStart(day)

	out := make(map[string]time.Time, 7)
	for _, t := range r.All() {
		out[t.Weekday().String()] = t
	}
	return out, nil
}
