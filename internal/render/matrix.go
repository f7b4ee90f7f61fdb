package render

import (
	"fmt"
	"io"
	"sort"

	appLog "timetable/internal/log"
	"timetable/internal/model"
	"timetable/internal/schedule"
)

// DefaultSlotMinutes is the matrix row height in minutes.
const DefaultSlotMinutes = 15

// MatrixOptions are the per-day inputs to BuildMatrix.
type MatrixOptions struct {
	SlotMinutes int
	// RoomOrder lists rooms to put first, in this order. Unknown names are
	// ignored.
	RoomOrder []string
	// MiscRooms are folded into shared "Misc" columns instead of getting a
	// column each.
	MiscRooms []string
}

// Placed is an event positioned in the matrix.
type Placed struct {
	Event   model.Event
	Rowspan int
	// SourceRoom is set for events in a misc column.
	SourceRoom string
}

// Row is one time slot. Cells has one entry per column that starts or is
// empty in this slot; columns covered by an event from an earlier slot are
// omitted, as a table rowspan requires. A nil cell is empty.
type Row struct {
	Minute int
	Cells  []*Placed
}

// Class labels the row for styling by its position in the hour.
func (r Row) Class() string {
	switch r.Minute % 60 {
	case 0:
		return "hour-row"
	case 30:
		return "half-row"
	default:
		return "minor-row"
	}
}

// Matrix is a room-by-time grid for one day.
type Matrix struct {
	Rooms       []string
	Columns     map[string][]model.Event
	SlotMinutes int
	Start, End  int
	Rows        []Row
	// MiscColumns is the number of trailing Rooms entries that are misc lanes.
	MiscColumns int
	// Collisions counts events that landed in an occupied slot and were left
	// out. Only possible when event times are not aligned to the slot size.
	Collisions int
}

// BuildMatrix resolves each room's conflicts, spreads the misc rooms over
// as many "Misc" columns as they need and slices the day into slots.
// Events without times are ignored. A day with no timed events yields a
// matrix with no rows.
func BuildMatrix(events []model.Event, opts MatrixOptions) Matrix {
	slot := opts.SlotMinutes
	if slot <= 0 {
		slot = DefaultSlotMinutes
	}
	misc := make(map[string]bool, len(opts.MiscRooms))
	for _, r := range opts.MiscRooms {
		misc[r] = true
	}

	var (
		byRoom     = map[string][]model.Event{}
		miscByRoom = map[string][]model.Event{}
		miscOrder  []string
	)
	for _, ev := range schedule.Timed(events) {
		room := ev.RoomOrUnknown()
		if misc[room] {
			if _, seen := miscByRoom[room]; !seen {
				miscOrder = append(miscOrder, room)
			}
			miscByRoom[room] = append(miscByRoom[room], ev)
			continue
		}
		byRoom[room] = append(byRoom[room], ev)
	}

	m := Matrix{
		Rooms:       orderRooms(byRoom, opts.RoomOrder),
		Columns:     make(map[string][]model.Event, len(byRoom)),
		SlotMinutes: slot,
	}
	for room, evs := range byRoom {
		m.Columns[room] = schedule.SortByInterval(schedule.ResolveConflicts(evs))
	}

	var miscEvents []model.Event
	for _, room := range miscOrder {
		miscEvents = append(miscEvents, schedule.ResolveConflicts(miscByRoom[room])...)
	}
	for i, lane := range schedule.AssignLaneBuckets(miscEvents) {
		label := "Misc"
		if i > 0 {
			label = fmt.Sprintf("Misc %d", i+1)
		}
		m.Rooms = append(m.Rooms, label)
		m.Columns[label] = lane
		m.MiscColumns++
	}

	first := true
	for _, room := range m.Rooms {
		for _, ev := range m.Columns[room] {
			if first {
				m.Start, m.End = ev.Start(), ev.End()
				first = false
				continue
			}
			m.Start = min(m.Start, ev.Start())
			m.End = max(m.End, ev.End())
		}
	}
	if first {
		return m
	}
	m.Start = floorTo(m.Start, slot)
	m.End = ceilTo(m.End, slot)
	m.fillRows()
	return m
}

// orderRooms puts the override rooms first, then the rest by descending
// event count and name.
func orderRooms(byRoom map[string][]model.Event, override []string) []string {
	rest := make([]string, 0, len(byRoom))
	for room := range byRoom {
		rest = append(rest, room)
	}
	sort.Slice(rest, func(i, j int) bool {
		ci, cj := len(byRoom[rest[i]]), len(byRoom[rest[j]])
		if ci != cj {
			return ci > cj
		}
		return rest[i] < rest[j]
	})

	seen := make(map[string]bool, len(byRoom))
	rooms := make([]string, 0, len(byRoom))
	for _, room := range override {
		if _, ok := byRoom[room]; ok && !seen[room] {
			rooms = append(rooms, room)
			seen[room] = true
		}
	}
	for _, room := range rest {
		if !seen[room] {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

func (m *Matrix) fillRows() {
	slot := m.SlotMinutes
	n := (m.End - m.Start) / slot
	for _, evs := range m.Columns {
		for _, ev := range evs {
			// Zero-length events on a slot boundary still need a row.
			n = max(n, (ev.Start()-m.Start)/slot+1)
		}
	}
	firstMisc := len(m.Rooms) - m.MiscColumns

	// grid[col][row] is the event starting there; covered marks rows spanned
	// by an event from an earlier row.
	grid := make([][]*Placed, len(m.Rooms))
	covered := make([][]bool, len(m.Rooms))
	for c, room := range m.Rooms {
		grid[c] = make([]*Placed, n)
		covered[c] = make([]bool, n)
		for _, ev := range m.Columns[room] {
			row := (ev.Start() - m.Start) / slot
			if grid[c][row] != nil || covered[c][row] {
				m.Collisions++
				continue
			}
			span := (max(1, ev.Duration()) + slot - 1) / slot
			span = min(span, n-row)
			p := &Placed{Event: ev, Rowspan: span}
			if c >= firstMisc {
				p.SourceRoom = ev.RoomOrUnknown()
			}
			grid[c][row] = p
			for k := 1; k < span; k++ {
				covered[c][row+k] = true
			}
		}
	}

	m.Rows = make([]Row, n)
	for r := range n {
		row := Row{Minute: m.Start + r*slot}
		for c := range m.Rooms {
			if covered[c][r] {
				continue
			}
			row.Cells = append(row.Cells, grid[c][r])
		}
		m.Rows[r] = row
	}
}

type matrixCell struct {
	card
	Rowspan    int
	SourceRoom string
}

type matrixRow struct {
	Minute int
	Class  string
	Cells  []*matrixCell
}

// MatrixPage renders the matrix view of a day.
func MatrixPage(w io.Writer, day string, events []model.Event, opts Options) (bool, error) {
	m := BuildMatrix(events, MatrixOptions{
		SlotMinutes: opts.SlotMinutes,
		RoomOrder:   opts.RoomOrder,
		MiscRooms:   opts.MiscRooms,
	})
	if len(m.Rows) == 0 {
		return false, nil
	}
	if m.Collisions > 0 {
		appLog.Warn("matrix: events hidden by unaligned slots", "day", day, "count", m.Collisions, "slot_minutes", m.SlotMinutes)
	}

	rows := make([]matrixRow, len(m.Rows))
	for i, r := range m.Rows {
		row := matrixRow{Minute: r.Minute, Class: r.Class()}
		for _, p := range r.Cells {
			if p == nil {
				row.Cells = append(row.Cells, nil)
				continue
			}
			c := newCard(p.Event, opts)
			if c.Time != "" {
				c.Details = append(c.Details, c.Time)
			}
			mc := &matrixCell{card: c, Rowspan: p.Rowspan}
			if opts.Display.ShowRoom {
				mc.SourceRoom = p.SourceRoom
			}
			row.Cells = append(row.Cells, mc)
		}
		rows[i] = row
	}

	data := struct {
		page
		Rooms []string
		Rows  []matrixRow
	}{newPage(day, events, opts), m.Rooms, rows}
	return true, tmpl.ExecuteTemplate(w, "matrix.html", data)
}
