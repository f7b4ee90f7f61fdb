package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timetable.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer != RendererTable {
		t.Fatalf("expected default renderer %q, got %q", RendererTable, cfg.Renderer)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
}

func TestLoad_PartialFileNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	yml := []byte("renderer: matrix\nslot_minutes: 0\norientation: sideways\nconference_start: \"2026-01-03\"\n")
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer != RendererMatrix {
		t.Errorf("renderer = %q, want matrix", cfg.Renderer)
	}
	if cfg.SlotMinutes != 15 {
		t.Errorf("slot_minutes = %d, want 15", cfg.SlotMinutes)
	}
	if cfg.Orientation != "landscape" {
		t.Errorf("orientation = %q, want landscape", cfg.Orientation)
	}
	if cfg.DB != "schedule.db" {
		t.Errorf("db = %q, want default", cfg.DB)
	}
	start, ok := cfg.StartDate(time.UTC)
	if !ok || start.Weekday() != time.Saturday {
		t.Errorf("StartDate = %v, %v; want a Saturday", start, ok)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", got.Listen)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("basic auth not preserved: %+v", got.BasicAuth)
	}
}

func TestNormalize_BadConferenceStart(t *testing.T) {
	cfg := &Config{ConferenceStart: "Jan 3"}
	cfg.Normalize()
	if cfg.ConferenceStart != "" {
		t.Fatalf("expected invalid conference_start to be cleared, got %q", cfg.ConferenceStart)
	}
	if _, ok := cfg.StartDate(time.UTC); ok {
		t.Fatal("expected no start date")
	}
}
