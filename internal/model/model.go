package model

// DayOrder lists the conference weekdays in display order. The meeting runs
// Saturday through Friday, so Saturday sorts first.
var DayOrder = []string{
	"Saturday",
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
}

// UnknownDayIndex is used for events whose day name is not in DayOrder.
const UnknownDayIndex = 99

// UnknownRoom labels events that were parsed without a room.
const UnknownRoom = "TBD"

// DayIndex returns the position of name in DayOrder, or UnknownDayIndex.
func DayIndex(name string) int {
	for i, d := range DayOrder {
		if d == name {
			return i
		}
	}
	return UnknownDayIndex
}

// Event is a single scheduled item (talk, session, social) as parsed from the
// itinerary and stored in the event database.
//
// StartMin / EndMin are minutes from midnight. Either may be nil when the
// parser could not read a time; such events never reach the interval
// algorithms in internal/schedule.
type Event struct {
	ID int64 `json:"id"`

	DayName  string `json:"day_name"`
	DayIndex int    `json:"day_index"`
	DateText string `json:"date_text,omitempty"`
	DateISO  string `json:"date_iso,omitempty"`

	// Original clock strings, e.g. "9:15 AM".
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`

	StartMin *int `json:"start_min"`
	EndMin   *int `json:"end_min"`

	Room      string `json:"room"`
	Title     string `json:"title"`
	Session   string `json:"session,omitempty"`
	TalkTitle string `json:"talk_title,omitempty"`
}

// Timed reports whether both start and end minutes are known.
func (e Event) Timed() bool {
	return e.StartMin != nil && e.EndMin != nil
}

// Start returns the start minute. Callers must check Timed first.
func (e Event) Start() int { return *e.StartMin }

// End returns the end minute. Callers must check Timed first.
func (e Event) End() int { return *e.EndMin }

// Duration is End - Start in minutes. Callers must check Timed first.
func (e Event) Duration() int { return *e.EndMin - *e.StartMin }

// RoomOrUnknown returns the room label, substituting UnknownRoom for empty rooms.
func (e Event) RoomOrUnknown() string {
	if e.Room == "" {
		return UnknownRoom
	}
	return e.Room
}

// Minutes returns a pointer to m, for building events in parsers and tests.
func Minutes(m int) *int {
	return &m
}
