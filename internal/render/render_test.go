package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"timetable/internal/config"
	"timetable/internal/layout"
	"timetable/internal/model"
)

func ev(id int64, room string, start, end int) model.Event {
	return model.Event{
		ID:        id,
		DayName:   "Sunday",
		DayIndex:  model.DayIndex("Sunday"),
		DateText:  "Sunday, January 4, 2026",
		StartTime: model.ClockLabel(start),
		EndTime:   model.ClockLabel(end),
		StartMin:  model.Minutes(start),
		EndMin:    model.Minutes(end),
		Room:      room,
		Title:     "Talk " + room,
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a long title here", 10, "a long..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, "abcdef"},
		{"abcdef", -1, "abcdef"},
		{"      trailing", 8, "      tr"},
		{"", 5, ""},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestDayLabel(t *testing.T) {
	if got := DayLabel(nil); got != "" {
		t.Fatalf("empty = %q", got)
	}
	events := []model.Event{
		{DayName: "Monday", DateText: "A"},
		{DayName: "Monday", DateText: "B"},
		{DayName: "Monday", DateText: "B"},
		{DayName: "Monday"},
	}
	if got := DayLabel(events); got != "B" {
		t.Fatalf("most common = %q, want B", got)
	}
	if got := DayLabel([]model.Event{{DayName: "Monday"}}); got != "Monday" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestDetails(t *testing.T) {
	opts := DefaultOptions()
	e := model.Event{Title: "T", Session: "S", TalkTitle: "K"}
	if got := details(e, "T", opts); !reflect.DeepEqual(got, []string{"S", "K"}) {
		t.Fatalf("details = %v", got)
	}
	e = model.Event{Title: "K", Session: "K", TalkTitle: "K"}
	if got := details(e, "K", opts); len(got) != 0 {
		t.Fatalf("title repeats should be dropped, got %v", got)
	}
	e = model.Event{Title: "T", Session: "S", TalkTitle: "S"}
	if got := details(e, "T", opts); !reflect.DeepEqual(got, []string{"S"}) {
		t.Fatalf("duplicate talk title = %v", got)
	}
	opts.Display.ShowSession = false
	e = model.Event{Title: "T", Session: "S", TalkTitle: "K"}
	if got := details(e, "T", opts); !reflect.DeepEqual(got, []string{"K"}) {
		t.Fatalf("hidden session = %v", got)
	}
}

func TestBuildMatrixRoomOrder(t *testing.T) {
	events := []model.Event{
		ev(1, "B", 540, 600),
		ev(2, "B", 600, 660),
		ev(3, "A", 540, 600),
		ev(4, "C", 540, 600),
		ev(5, "", 540, 600),
	}
	m := BuildMatrix(events, MatrixOptions{SlotMinutes: 15})
	if want := []string{"B", "A", "C", model.UnknownRoom}; !reflect.DeepEqual(m.Rooms, want) {
		t.Fatalf("rooms = %v, want %v", m.Rooms, want)
	}

	m = BuildMatrix(events, MatrixOptions{SlotMinutes: 15, RoomOrder: []string{"C", "Nowhere", "C"}})
	if want := []string{"C", "B", "A", model.UnknownRoom}; !reflect.DeepEqual(m.Rooms, want) {
		t.Fatalf("override rooms = %v, want %v", m.Rooms, want)
	}
}

func TestBuildMatrixResolvesPerRoom(t *testing.T) {
	events := []model.Event{
		ev(1, "A", 540, 570),
		ev(2, "A", 540, 660), // longer, replaces 1
		ev(3, "B", 540, 570), // other room, untouched
	}
	m := BuildMatrix(events, MatrixOptions{SlotMinutes: 15})
	if got := ids(m.Columns["A"]); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("room A = %v", got)
	}
	if got := ids(m.Columns["B"]); !reflect.DeepEqual(got, []int64{3}) {
		t.Fatalf("room B = %v", got)
	}
	if m.Start != 540 || m.End != 660 || len(m.Rows) != 8 {
		t.Fatalf("grid = %d..%d rows=%d", m.Start, m.End, len(m.Rows))
	}
	// Row 0: both events start. Rows 1 and 2 still show room B empty, room A
	// is covered by the 8-slot rowspan.
	first := m.Rows[0].Cells
	if len(first) != 2 || first[0].Rowspan != 8 || first[1].Rowspan != 2 {
		t.Fatalf("row 0 = %+v", first)
	}
	if len(m.Rows[1].Cells) != 0 {
		t.Fatalf("row 1 should be fully covered, got %d cells", len(m.Rows[1].Cells))
	}
	if c := m.Rows[2].Cells; len(c) != 1 || c[0] != nil {
		t.Fatalf("row 2 = %+v", c)
	}
}

func TestBuildMatrixMiscColumns(t *testing.T) {
	events := []model.Event{
		ev(1, "Hall", 540, 600),
		ev(2, "Lobby", 540, 600),
		ev(3, "Foyer", 570, 630),
		ev(4, "Lobby", 600, 630),
		ev(5, "Lobby", 550, 560), // loses to 2 in its own room
	}
	m := BuildMatrix(events, MatrixOptions{SlotMinutes: 30, MiscRooms: []string{"Lobby", "Foyer"}})
	if want := []string{"Hall", "Misc", "Misc 2"}; !reflect.DeepEqual(m.Rooms, want) {
		t.Fatalf("rooms = %v, want %v", m.Rooms, want)
	}
	if m.MiscColumns != 2 {
		t.Fatalf("misc columns = %d", m.MiscColumns)
	}
	if got := ids(m.Columns["Misc"]); !reflect.DeepEqual(got, []int64{2, 4}) {
		t.Fatalf("Misc = %v", got)
	}
	if got := ids(m.Columns["Misc 2"]); !reflect.DeepEqual(got, []int64{3}) {
		t.Fatalf("Misc 2 = %v", got)
	}
	cells := m.Rows[0].Cells
	if cells[0].SourceRoom != "" || cells[1].SourceRoom != "Lobby" {
		t.Fatalf("source rooms = %q %q", cells[0].SourceRoom, cells[1].SourceRoom)
	}
}

func TestBuildMatrixEmpty(t *testing.T) {
	untimed := model.Event{ID: 1, Room: "A"}
	m := BuildMatrix([]model.Event{untimed}, MatrixOptions{})
	if len(m.Rows) != 0 || len(m.Rooms) != 0 {
		t.Fatalf("expected empty matrix, got %+v", m)
	}
	var buf bytes.Buffer
	ok, err := MatrixPage(&buf, "Sunday", []model.Event{untimed}, DefaultOptions())
	if err != nil || ok || buf.Len() != 0 {
		t.Fatalf("ok=%v err=%v len=%d", ok, err, buf.Len())
	}
}

func TestBuildMatrixUnalignedCollision(t *testing.T) {
	events := []model.Event{
		ev(1, "A", 540, 550),
		ev(2, "A", 550, 555), // same 15-minute slot as 1
	}
	m := BuildMatrix(events, MatrixOptions{SlotMinutes: 15})
	if m.Collisions != 1 {
		t.Fatalf("collisions = %d", m.Collisions)
	}
}

func TestRowClass(t *testing.T) {
	for minute, want := range map[int]string{540: "hour-row", 570: "half-row", 555: "minor-row"} {
		if got := (Row{Minute: minute}).Class(); got != want {
			t.Errorf("Class(%d) = %q, want %q", minute, got, want)
		}
	}
}

func TestRenderers(t *testing.T) {
	events := []model.Event{
		ev(1, "Hall <A>", 540, 600),
		ev(2, "Hall B", 570, 630),
		{ID: 3, DayName: "Sunday", Title: "untimed"},
	}
	for _, r := range []string{config.RendererTable, config.RendererTimeline, config.RendererMatrix} {
		var buf bytes.Buffer
		ok, err := Day(&buf, r, "Sunday", events, DefaultOptions())
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", r, ok, err)
		}
		out := buf.String()
		for _, want := range []string{"<h1>Sunday</h1>", "Sunday, January 4, 2026", "Talk Hall B", "Hall &lt;A&gt;"} {
			if !strings.Contains(out, want) {
				t.Errorf("%s: output missing %q", r, want)
			}
		}
		if strings.Contains(out, "untimed") {
			t.Errorf("%s: untimed event rendered", r)
		}
	}

	var buf bytes.Buffer
	if _, err := Day(&buf, "gantt", "Sunday", events, DefaultOptions()); !errors.Is(err, ErrUnknownRenderer) {
		t.Fatalf("err = %v", err)
	}
}

func TestMatrixPageOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.PDF = true
	opts.Display.ShowTime = false
	var buf bytes.Buffer
	if _, err := MatrixPage(&buf, "Sunday", []model.Event{ev(1, "A", 540, 600)}, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "@page") || !strings.Contains(out, `class="pdf"`) {
		t.Errorf("pdf mode not applied")
	}
	if strings.Contains(out, "9:00 AM - 10:00 AM") {
		t.Errorf("time shown despite show_time=false")
	}
	if !strings.Contains(out, `rowspan="4"`) {
		t.Errorf("expected a 4-slot rowspan")
	}
}

type fakeSource map[string][]model.Event

func (f fakeSource) EventsByDay(context.Context) (map[string][]model.Event, error) {
	return f, nil
}

func TestRenderSite(t *testing.T) {
	mon := ev(10, "A", 600, 660)
	mon.DayName = "Monday"
	src := fakeSource{
		"Sunday": {ev(1, "A", 540, 600), ev(2, "B", 540, 600)},
		"Monday": {mon},
		"Friday": {{ID: 20, DayName: "Friday", Title: "no times"}},
	}
	l := layout.Default()
	l.HiddenEventIDsByDay["Monday"] = []int64{10}

	dir := t.TempDir()
	pages, err := RenderSite(context.Background(), src, dir, config.RendererMatrix, l, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Day != "Sunday" || pages[0].File != "day-sunday.html" {
		t.Fatalf("pages = %+v", pages)
	}
	if _, err := os.Stat(filepath.Join(dir, "day-monday.html")); !os.IsNotExist(err) {
		t.Fatalf("hidden-only day should not be written")
	}
	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(index), `href="day-sunday.html"`) {
		t.Fatalf("index missing link: %s", index)
	}
}

func ids(events []model.Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
