// Package render turns a day's events into standalone HTML pages: a lane
// timeline, a flat table and a room-by-time matrix that is also used for PDF
// output.
package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"timetable/internal/config"
	"timetable/internal/layout"
	"timetable/internal/model"
)

//go:embed templates/*.html templates/*.css
var templateFS embed.FS

var (
	tmpl = template.Must(template.New("").Funcs(template.FuncMap{
		"clock": model.ClockLabel,
	}).ParseFS(templateFS, "templates/*.html"))

	stylesheet = template.CSS(mustRead("templates/style.css"))
)

// ErrUnknownRenderer is returned for renderer names other than table,
// timeline and matrix.
var ErrUnknownRenderer = errors.New("render: unknown renderer")

const untitled = "(Untitled)"

// Options controls how a day page is rendered.
type Options struct {
	// Title is the small header line above the day name.
	Title string

	Display        layout.DisplayOptions
	TitleMaxLength int

	// Matrix only.
	RoomOrder   []string
	MiscRooms   []string
	SlotMinutes int
	PDF         bool
	PageSize    string
	Orientation string
}

// DefaultOptions mirrors the default config and layout.
func DefaultOptions() Options {
	cfg := config.DefaultConfig()
	return Options{
		Title:          cfg.Title,
		Display:        layout.DefaultDisplayOptions(),
		TitleMaxLength: layout.DefaultTitleMaxLength,
		SlotMinutes:    cfg.SlotMinutes,
		PageSize:       cfg.PageSize,
		Orientation:    cfg.Orientation,
	}
}

// OptionsFor builds render options from the config and the layout overrides
// of one day.
func OptionsFor(cfg *config.Config, l layout.Layout, day string) Options {
	return Options{
		Title:          cfg.Title,
		Display:        l.DisplayOptions,
		TitleMaxLength: l.TitleMaxLength,
		RoomOrder:      l.RoomOrderByDay[day],
		MiscRooms:      l.MiscRoomsByDay[day],
		SlotMinutes:    cfg.SlotMinutes,
		PageSize:       cfg.PageSize,
		Orientation:    cfg.Orientation,
	}
}

// Day renders one day with the named renderer. It writes nothing and returns
// (false, nil) when none of the events are timed.
func Day(w io.Writer, renderer, day string, events []model.Event, opts Options) (bool, error) {
	switch renderer {
	case config.RendererTable:
		return Table(w, day, events, opts)
	case config.RendererTimeline:
		return Timeline(w, day, events, opts)
	case config.RendererMatrix:
		return MatrixPage(w, day, events, opts)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownRenderer, renderer)
	}
}

// Truncate shortens text to max runes, ending in "..." when there is room for
// it. A max of zero or less disables truncation.
func Truncate(text string, max int) string {
	if text == "" || max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	const suffix = "..."
	if max <= len(suffix) {
		return string(runes[:max])
	}
	trimmed := strings.TrimRight(string(runes[:max-len(suffix)]), " \t\r\n")
	if trimmed == "" {
		return string(runes[:max])
	}
	return trimmed + suffix
}

// DayLabel picks the most common date text among events ("Sunday, January
// 4, 2026"), falling back to the first event's day name. Ties go to the
// date seen first.
func DayLabel(events []model.Event) string {
	if len(events) == 0 {
		return ""
	}
	counts := map[string]int{}
	var order []string
	for _, ev := range events {
		if ev.DateText == "" {
			continue
		}
		if counts[ev.DateText] == 0 {
			order = append(order, ev.DateText)
		}
		counts[ev.DateText]++
	}
	best := ""
	for _, d := range order {
		if best == "" || counts[d] > counts[best] {
			best = d
		}
	}
	if best != "" {
		return best
	}
	return events[0].DayName
}

// page carries the fields every template header needs.
type page struct {
	Title       string
	Day         string
	Label       string
	CSS         template.CSS
	PDF         bool
	PageSize    string
	Orientation string
}

func newPage(day string, events []model.Event, opts Options) page {
	title := opts.Title
	if title == "" {
		title = config.DefaultConfig().Title
	}
	return page{
		Title:       title,
		Day:         day,
		Label:       DayLabel(events),
		CSS:         stylesheet,
		PDF:         opts.PDF,
		PageSize:    opts.PageSize,
		Orientation: opts.Orientation,
	}
}

// card is the display text of one event after display options and
// truncation are applied.
type card struct {
	Title   string
	Details []string
	Time    string
	Room    string
}

func newCard(ev model.Event, opts Options) card {
	raw := ev.Title
	if raw == "" {
		raw = untitled
	}
	c := card{
		Title:   Truncate(raw, opts.TitleMaxLength),
		Details: details(ev, raw, opts),
	}
	if opts.Display.ShowTime {
		c.Time = timeRange(ev)
	}
	if opts.Display.ShowRoom {
		c.Room = ev.Room
	}
	return c
}

// details lists the session and talk title lines that add something beyond
// the title itself.
func details(ev model.Event, rawTitle string, opts Options) []string {
	var out []string
	if opts.Display.ShowSession && ev.Session != "" && ev.Session != rawTitle {
		out = append(out, Truncate(ev.Session, opts.TitleMaxLength))
	}
	if opts.Display.ShowTalkTitle && ev.TalkTitle != "" && ev.TalkTitle != rawTitle {
		talk := Truncate(ev.TalkTitle, opts.TitleMaxLength)
		if len(out) == 0 || out[0] != ev.TalkTitle {
			out = append(out, talk)
		}
	}
	return out
}

func timeRange(ev model.Event) string {
	return strings.Trim(ev.StartTime+" - "+ev.EndTime, " -")
}

// Table renders events as rows sorted by (start, end, room, title).
func Table(w io.Writer, day string, events []model.Event, opts Options) (bool, error) {
	timed := sortedForTable(events)
	if len(timed) == 0 {
		return false, nil
	}
	cards := make([]card, len(timed))
	for i, ev := range timed {
		cards[i] = newCard(ev, opts)
	}
	data := struct {
		page
		Display layout.DisplayOptions
		Rows    []card
	}{newPage(day, events, opts), opts.Display, cards}
	return true, tmpl.ExecuteTemplate(w, "table.html", data)
}

func sortedForTable(events []model.Event) []model.Event {
	timed := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Timed() {
			timed = append(timed, ev)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		a, b := timed[i], timed[j]
		switch {
		case a.Start() != b.Start():
			return a.Start() < b.Start()
		case a.End() != b.End():
			return a.End() < b.End()
		case a.Room != b.Room:
			return a.Room < b.Room
		default:
			return a.Title < b.Title
		}
	})
	return timed
}

func mustRead(name string) string {
	b, err := templateFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}
