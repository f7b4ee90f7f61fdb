package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"timetable/internal/config"
	"timetable/internal/layout"
	appLog "timetable/internal/log"
	"timetable/internal/model"
)

// EventSource provides the stored events grouped by day name.
type EventSource interface {
	EventsByDay(ctx context.Context) (map[string][]model.Event, error)
}

// SitePage is one written day page.
type SitePage struct {
	Day  string
	File string
	Path string
}

// DayFile is the file name of a day page, e.g. "day-sunday.html".
func DayFile(day string) string {
	return "day-" + strings.ToLower(day) + ".html"
}

// RenderSite writes one page per day with events, in conference order, plus
// an index.html linking them. Days whose events are all hidden or untimed
// are skipped. base supplies the settings shared by every day; the layout
// supplies the per-day overrides.
func RenderSite(ctx context.Context, src EventSource, outDir, renderer string, l layout.Layout, base Options) ([]SitePage, error) {
	byDay, err := src.EventsByDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: load events: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create %s: %w", outDir, err)
	}

	var pages []SitePage
	for _, day := range model.DayOrder {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		events, order, misc := l.Apply(byDay[day], day)
		if len(events) == 0 {
			continue
		}
		opts := base
		opts.Display = l.DisplayOptions
		opts.TitleMaxLength = l.TitleMaxLength
		opts.RoomOrder = order
		opts.MiscRooms = misc

		var buf bytes.Buffer
		ok, err := Day(&buf, renderer, day, events, opts)
		if err != nil {
			return pages, fmt.Errorf("render: %s: %w", day, err)
		}
		if !ok {
			appLog.Debug("render: no timed events, skipping day", "day", day)
			continue
		}
		p := SitePage{Day: day, File: DayFile(day), Path: filepath.Join(outDir, DayFile(day))}
		if err := config.WriteFileAtomic(p.Path, buf.Bytes(), 0o644); err != nil {
			return pages, fmt.Errorf("render: write %s: %w", p.Path, err)
		}
		pages = append(pages, p)
	}

	var buf bytes.Buffer
	if err := Index(&buf, base.Title, pages); err != nil {
		return pages, err
	}
	indexPath := filepath.Join(outDir, "index.html")
	if err := config.WriteFileAtomic(indexPath, buf.Bytes(), 0o644); err != nil {
		return pages, fmt.Errorf("render: write %s: %w", indexPath, err)
	}
	appLog.Info("render: site written", "dir", outDir, "renderer", renderer, "days", len(pages))
	return pages, nil
}

// Index renders the page listing the day pages.
func Index(w io.Writer, title string, pages []SitePage) error {
	if title == "" {
		title = config.DefaultConfig().Title
	}
	data := struct {
		Title string
		CSS   template.CSS
		Days  []SitePage
	}{title, stylesheet, pages}
	return tmpl.ExecuteTemplate(w, "index.html", data)
}
