// Package layout reads and applies the user's per-day display overrides:
// room column order, hidden events, rooms folded into the misc columns and
// which event details to show.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"timetable/internal/config"
	appLog "timetable/internal/log"
	"timetable/internal/model"
)

// DefaultTitleMaxLength bounds rendered titles unless the layout overrides it.
const DefaultTitleMaxLength = 60

// DisplayOptions toggles optional event details in every view.
type DisplayOptions struct {
	ShowSession   bool `json:"show_session"`
	ShowTalkTitle bool `json:"show_talk_title"`
	ShowTime      bool `json:"show_time"`
	ShowRoom      bool `json:"show_room"`
}

// DefaultDisplayOptions shows everything.
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{ShowSession: true, ShowTalkTitle: true, ShowTime: true, ShowRoom: true}
}

// Layout is the content of layout.json.
type Layout struct {
	RoomOrderByDay      map[string][]string `json:"room_order_by_day"`
	HiddenEventIDsByDay map[string][]int64  `json:"hidden_event_ids_by_day"`
	MiscRoomsByDay      map[string][]string `json:"misc_rooms_by_day"`
	DisplayOptions      DisplayOptions      `json:"display_options"`
	// TitleMaxLength truncates titles; 0 disables truncation.
	TitleMaxLength int `json:"title_max_length"`
}

// Default returns an empty layout with default display settings.
func Default() Layout {
	return Layout{
		RoomOrderByDay:      map[string][]string{},
		HiddenEventIDsByDay: map[string][]int64{},
		MiscRoomsByDay:      map[string][]string{},
		DisplayOptions:      DefaultDisplayOptions(),
		TitleMaxLength:      DefaultTitleMaxLength,
	}
}

// Normalize builds a Layout from loosely-typed JSON data (as decoded into
// `any`). Members of the wrong shape are ignored rather than rejected:
// non-list day entries are dropped, hidden ids are coerced from numbers or
// numeric strings, empty room names are skipped and only boolean display
// options are honoured.
func Normalize(data any) Layout {
	l := Default()
	obj, ok := data.(map[string]any)
	if !ok {
		return l
	}

	l.RoomOrderByDay = stringListsByDay(obj["room_order_by_day"])
	l.MiscRoomsByDay = stringListsByDay(obj["misc_rooms_by_day"])

	if hidden, ok := obj["hidden_event_ids_by_day"].(map[string]any); ok {
		for day, v := range hidden {
			items, ok := v.([]any)
			if !ok {
				continue
			}
			ids := make([]int64, 0, len(items))
			for _, item := range items {
				if id, ok := toInt(item); ok {
					ids = append(ids, id)
				}
			}
			if len(ids) > 0 {
				l.HiddenEventIDsByDay[day] = ids
			}
		}
	}

	if opts, ok := obj["display_options"].(map[string]any); ok {
		setBool(opts, "show_session", &l.DisplayOptions.ShowSession)
		setBool(opts, "show_talk_title", &l.DisplayOptions.ShowTalkTitle)
		setBool(opts, "show_time", &l.DisplayOptions.ShowTime)
		setBool(opts, "show_room", &l.DisplayOptions.ShowRoom)
	}

	if v, present := obj["title_max_length"]; present && v != nil {
		if n, ok := toInt(v); ok {
			l.TitleMaxLength = int(max(0, n))
		}
	}

	return l
}

// Parse decodes raw JSON and normalizes it.
func Parse(raw []byte) (Layout, error) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Default(), err
	}
	return Normalize(data), nil
}

// Load reads path. A missing or unparseable file yields the default layout.
func Load(path string) (Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("layout: read %s: %w", path, err)
	}
	l, err := Parse(raw)
	if err != nil {
		appLog.Warn("layout: invalid JSON, using defaults", "path", path, "err", err)
		return Default(), nil
	}
	return l, nil
}

// Save normalizes l and writes it to path as indented JSON.
func Save(path string, l Layout) error {
	// Round-trip through the loose form so Save applies the same rules as Load.
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	normalized, err := Parse(raw)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(path, out, 0o644); err != nil {
		return fmt.Errorf("layout: write %s: %w", path, err)
	}
	return nil
}

// Apply drops the events hidden for day and returns them with the day's room
// order and misc room overrides.
func (l Layout) Apply(events []model.Event, day string) (visible []model.Event, roomOrder, miscRooms []string) {
	hidden := make(map[int64]struct{}, len(l.HiddenEventIDsByDay[day]))
	for _, id := range l.HiddenEventIDsByDay[day] {
		hidden[id] = struct{}{}
	}
	visible = make([]model.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := hidden[ev.ID]; ok {
			continue
		}
		visible = append(visible, ev)
	}
	return visible, l.RoomOrderByDay[day], l.MiscRoomsByDay[day]
}

func stringListsByDay(v any) map[string][]string {
	out := map[string][]string{}
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for day, rv := range obj {
		items, ok := rv.([]any)
		if !ok {
			continue
		}
		rooms := make([]string, 0, len(items))
		for _, item := range items {
			if s := toString(item); s != "" {
				rooms = append(rooms, s)
			}
		}
		if len(rooms) > 0 {
			out[day] = rooms
		}
	}
	return out
}

func setBool(obj map[string]any, key string, dst *bool) {
	if b, ok := obj[key].(bool); ok {
		*dst = b
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return ""
	default:
		return ""
	}
}
