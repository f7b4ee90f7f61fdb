package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timetable/internal/render"
)

const itinerary = `SICB 2026 Annual Meeting

Sunday
Keynote
Date: Sun, January 04 • Time: 9:00 AM - 10:30 AM • Room: Hall A

Short talk
Date: Sun, January 04 • Time: 9:30 AM - 9:45 AM • Room: Hall A

Posters
Date: Sun, January 04 • Time: 9:00 AM - 10:00 AM • Room: Hall B
`

type workspace struct {
	dir    string
	config string
	db     string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	return workspace{
		dir:    dir,
		config: filepath.Join(dir, "timetable.yaml"),
		db:     filepath.Join(dir, "schedule.db"),
	}
}

func (w workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	full := append([]string{"timetable", "--config", w.config, "--log-level", "error"}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (w workspace) parse(t *testing.T) {
	t.Helper()
	txt := filepath.Join(w.dir, "itinerary.txt")
	if err := os.WriteFile(txt, []byte(itinerary), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := w.run(t, "parse", "--db", w.db, "--json", filepath.Join(w.dir, "events.json"), txt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "Parsed 3 events") {
		t.Fatalf("parse output = %q", out)
	}
}

func TestParseAndRender(t *testing.T) {
	w := newWorkspace(t)
	w.parse(t)

	if _, err := os.Stat(w.config); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(w.dir, "events.json")); err != nil {
		t.Fatalf("json dump missing: %v", err)
	}

	outDir := filepath.Join(w.dir, "html")
	out, err := w.run(t, "render", "--db", w.db, "--outdir", outDir, "--renderer", "matrix", "--layout", filepath.Join(w.dir, "layout.json"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Rendered 2 files") {
		t.Fatalf("render output = %q", out)
	}
	page, err := os.ReadFile(filepath.Join(outDir, "day-sunday.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "Keynote") || strings.Contains(string(page), "Short talk") {
		t.Fatalf("matrix should keep the keynote and drop the overlapped short talk")
	}
}

func TestRenderRejectsUnknownRenderer(t *testing.T) {
	w := newWorkspace(t)
	w.parse(t)
	_, err := w.run(t, "render", "--db", w.db, "--outdir", filepath.Join(w.dir, "html"), "--renderer", "gantt")
	if !errors.Is(err, render.ErrUnknownRenderer) {
		t.Fatalf("err = %v", err)
	}
}

func TestDedup(t *testing.T) {
	w := newWorkspace(t)
	w.parse(t)
	dst := filepath.Join(w.dir, "dedup.db")

	out, err := w.run(t, "dedup", "--db", w.db, "--out", dst)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	if !strings.Contains(out, "Kept 2 events, removed 1") {
		t.Fatalf("dedup output = %q", out)
	}

	if _, err := w.run(t, "dedup", "--db", w.db, "--out", dst); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("existing output should need --overwrite, got %v", err)
	}
	if _, err := w.run(t, "dedup", "--db", w.db, "--out", dst, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestCheckDedupPaths(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.db")
	if err := checkDedupPaths(in, filepath.Join(dir, "out.db"), false); err == nil {
		t.Fatal("missing input should fail")
	}
	if err := os.WriteFile(in, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := checkDedupPaths(in, in, true); err == nil {
		t.Fatal("in == out should fail")
	}
	if err := checkDedupPaths(in, filepath.Join(dir, "out.db"), false); err != nil {
		t.Fatalf("fresh output: %v", err)
	}
}

func TestExport(t *testing.T) {
	w := newWorkspace(t)
	w.parse(t)
	icsPath := filepath.Join(w.dir, "cal.ics")
	out, err := w.run(t, "export", "--db", w.db, "--out", icsPath, "--layout", filepath.Join(w.dir, "layout.json"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 3 events") {
		t.Fatalf("export output = %q", out)
	}
	raw, err := os.ReadFile(icsPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(raw), "BEGIN:VEVENT"); got != 3 {
		t.Fatalf("VEVENT count = %d", got)
	}
}
