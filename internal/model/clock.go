package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockRE = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*([AP]M)$`)

// ParseClock converts a 12-hour clock string such as "9:15 AM" or "12 PM"
// into minutes from midnight.
func ParseClock(s string) (int, bool) {
	m := clockRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	return hour*60 + minute, true
}

// ClockLabel formats minutes from midnight as "h:mm AM/PM".
func ClockLabel(minutes int) string {
	hour := minutes / 60
	minute := minutes % 60
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, ampm)
}
