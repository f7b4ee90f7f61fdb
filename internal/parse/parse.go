// Package parse turns the plain-text rendition of a conference itinerary into
// event records.
//
// The itinerary is a sequence of day headings ("Monday") followed by blocks
// of free text lines closed by a "Date: ... • Time: ... • Room: ..." line.
// Parsing is best effort: blocks whose date line cannot be read are skipped.
package parse

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	appLog "timetable/internal/log"
	"timetable/internal/model"
)

// ErrNoEvents is returned when the text contains no readable event blocks.
var ErrNoEvents = errors.New("parse: no events found")

// Bullet separates the date, time and room parts of a date line.
const Bullet = "•"

// DefaultYearTag marks the header line the conference year is read from.
const DefaultYearTag = "SICB"

var (
	spaceRE    = regexp.MustCompile(`\s+`)
	yearRE     = regexp.MustCompile(`\b(\d{4})\b`)
	timeDashRE = regexp.MustCompile(`\s*-\s*`)
)

var dayAbbr = map[string]string{
	"Sat": "Saturday",
	"Sun": "Sunday",
	"Mon": "Monday",
	"Tue": "Tuesday",
	"Wed": "Wednesday",
	"Thu": "Thursday",
	"Fri": "Friday",
}

var monthNum = map[string]int{
	"January": 1, "February": 2, "March": 3, "April": 4,
	"May": 5, "June": 6, "July": 7, "August": 8,
	"September": 9, "October": 10, "November": 11, "December": 12,
}

// Options tunes ParseEvents.
type Options struct {
	// YearTag is searched for in the first 50 lines; the first four-digit
	// number on that line is taken as the year. Defaults to DefaultYearTag.
	YearTag string
}

// ParseEvents extracts events from itinerary text. Returned events have no
// ID; the store assigns one on insert.
func ParseEvents(text string, opts Options) ([]model.Event, error) {
	if opts.YearTag == "" {
		opts.YearTag = DefaultYearTag
	}
	year := inferYear(text, opts.YearTag)

	raw := strings.Split(text, "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimSpace(l)
	}

	var (
		events     []model.Event
		currentDay string
		buffer     []string
		skipped    int
	)

	for i := 0; i < len(lines); {
		line := lines[i]
		switch {
		case line == "":
			i++
		case isDay(line):
			currentDay = line
			i++
		case currentDay == "":
			// Preamble before the first day heading.
			i++
		case strings.HasPrefix(line, "Date:"):
			dateLine := line
			j := i + 1
			for ; j < len(lines); j++ {
				next := lines[j]
				if next == "" || isDay(next) ||
					strings.HasPrefix(next, "Session:") ||
					strings.HasPrefix(next, "Talk Title:") ||
					strings.HasPrefix(next, "Date:") {
					break
				}
				dateLine = normalizeSpace(dateLine + " " + next)
			}

			ev, ok := parseDateLine(dateLine, year)
			if ok {
				// The day heading wins over the weekday on the date line.
				if currentDay != ev.DayName {
					ev.DayName = currentDay
				}
				ev.DayIndex = model.DayIndex(ev.DayName)
				applyBlock(&ev, buffer)
				events = append(events, ev)
			} else {
				skipped++
				appLog.Debug("parse: unreadable date line", "line", dateLine)
			}
			buffer = buffer[:0]
			i = j
		default:
			buffer = append(buffer, line)
			i++
		}
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	appLog.Info("parse completed", "events", len(events), "skipped", skipped, "year", year)
	return events, nil
}

func isDay(line string) bool {
	return slices.Contains(model.DayOrder, line)
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

func inferYear(text, tag string) int {
	lines := strings.SplitN(text, "\n", 51)
	if len(lines) > 50 {
		lines = lines[:50]
	}
	for _, line := range lines {
		if !strings.Contains(line, tag) {
			continue
		}
		if m := yearRE.FindStringSubmatch(line); m != nil {
			y, _ := strconv.Atoi(m[1])
			return y
		}
	}
	return 0
}

// parseDateLine reads "Date: Sat, January 04 • Time: 9:00 AM - 10:00 AM • Room: Hall A".
func parseDateLine(line string, year int) (model.Event, bool) {
	parts := strings.Split(line, Bullet)
	if len(parts) < 3 {
		return model.Event{}, false
	}
	datePart := strings.TrimSpace(strings.TrimPrefix(normalizeSpace(parts[0]), "Date:"))
	timePart := strings.TrimSpace(strings.TrimPrefix(normalizeSpace(parts[1]), "Time:"))
	roomPart := strings.TrimSpace(strings.TrimPrefix(normalizeSpace(parts[2]), "Room:"))

	dow, rest, found := strings.Cut(datePart, ",")
	if !found {
		return model.Event{}, false
	}
	dow = strings.TrimSpace(dow)
	fields := strings.Fields(rest)
	if dow == "" || len(fields) < 2 {
		return model.Event{}, false
	}
	month := fields[0]
	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.Event{}, false
	}

	dayName, ok := dayAbbr[dow]
	if !ok {
		dayName = dow
	}

	var startText, endText string
	if strings.Contains(timePart, "-") {
		pieces := timeDashRE.Split(timePart, 2)
		startText = normalizeSpace(pieces[0])
		endText = normalizeSpace(pieces[1])
	} else {
		startText, endText = timePart, timePart
	}

	ev := model.Event{
		DayName:   dayName,
		DateText:  fmt.Sprintf("%s, %s %02d", dow, month, day),
		StartTime: startText,
		EndTime:   endText,
		Room:      roomPart,
	}
	if m, ok := model.ParseClock(startText); ok {
		ev.StartMin = model.Minutes(m)
	}
	if m, ok := model.ParseClock(endText); ok {
		ev.EndMin = model.Minutes(m)
	}
	if n, ok := monthNum[month]; ok && year > 0 {
		ev.DateISO = fmt.Sprintf("%04d-%02d-%02d", year, n, day)
	}
	return ev, true
}

// applyBlock fills Session / TalkTitle / Title from the free text lines that
// precede a date line.
func applyBlock(ev *model.Event, lines []string) {
	var session, talk, title []string
	mode := ""

	for _, raw := range lines {
		line := normalizeSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Session:"):
			mode = "session"
			session = append(session, strings.TrimSpace(strings.TrimPrefix(line, "Session:")))
			continue
		case strings.HasPrefix(line, "Talk Title:"):
			mode = "talk"
			talk = append(talk, strings.TrimSpace(strings.TrimPrefix(line, "Talk Title:")))
			continue
		case strings.HasPrefix(line, "Session "):
			mode = "session"
			session = append(session, line)
			continue
		}

		switch mode {
		case "session":
			session = append(session, line)
		case "talk":
			talk = append(talk, line)
		default:
			title = append(title, line)
		}
	}

	ev.Session = normalizeSpace(strings.Join(session, " "))
	ev.TalkTitle = normalizeSpace(strings.Join(talk, " "))
	ev.Title = normalizeSpace(strings.Join(title, " "))
	if ev.Title == "" {
		if ev.TalkTitle != "" {
			ev.Title = ev.TalkTitle
		} else {
			ev.Title = ev.Session
		}
	}
}
