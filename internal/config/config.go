package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Renderer names accepted by Config.Renderer.
const (
	RendererTable    = "table"
	RendererTimeline = "timeline"
	RendererMatrix   = "matrix"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the layout editor.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the layout editor.
	Listen string `yaml:"listen" json:"listen"`

	// DB is the SQLite event database produced by `parse`.
	DB string `yaml:"db" json:"db"`

	// Layout is the JSON file holding room order / hidden events overrides.
	Layout string `yaml:"layout" json:"layout"`

	OutputDir string `yaml:"output_dir" json:"output_dir"`
	PDFDir    string `yaml:"pdf_dir" json:"pdf_dir"`
	UIDir     string `yaml:"ui_dir" json:"ui_dir"`

	// Renderer selects the HTML view: "table" (default), "timeline" or "matrix".
	Renderer string `yaml:"renderer" json:"renderer"`

	// SlotMinutes is the row height of the matrix view.
	SlotMinutes int `yaml:"slot_minutes" json:"slot_minutes"`

	// PageSize / Orientation control the printed matrix ("A4", "Letter";
	// "landscape" or "portrait").
	PageSize    string `yaml:"page_size" json:"page_size"`
	Orientation string `yaml:"orientation" json:"orientation"`

	// Title is shown above every day heading.
	Title string `yaml:"title" json:"title"`

	// ConferenceStart is the date (YYYY-MM-DD) of the first conference day.
	// It lets calendar export date events whose itinerary line had no year.
	ConferenceStart string `yaml:"conference_start,omitempty" json:"conference_start,omitempty"`

	// Timezone is the IANA zone the itinerary times are in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron re-renders the HTML output while `serve` runs
	// (e.g. "*/5 * * * *"). Empty disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8787",
		DB:          "schedule.db",
		Layout:      "layout.json",
		OutputDir:   "output",
		PDFDir:      "output-pdf",
		UIDir:       "ui",
		Renderer:    RendererTable,
		SlotMinutes: 15,
		PageSize:    "A4",
		Orientation: "landscape",
		Title:       "SICB itinerary",
		Timezone:    "America/New_York",
		RefreshCron: "*/5 * * * *",
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DB == "" {
		c.DB = def.DB
	}
	if c.Layout == "" {
		c.Layout = def.Layout
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.PDFDir == "" {
		c.PDFDir = def.PDFDir
	}
	if c.UIDir == "" {
		c.UIDir = def.UIDir
	}
	switch c.Renderer {
	case RendererTable, RendererTimeline, RendererMatrix:
		// ok
	default:
		c.Renderer = def.Renderer
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > 120 {
		c.SlotMinutes = def.SlotMinutes
	}
	if c.PageSize == "" {
		c.PageSize = def.PageSize
	}
	switch c.Orientation {
	case "landscape", "portrait":
	default:
		c.Orientation = def.Orientation
	}
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.ConferenceStart != "" {
		if _, err := time.Parse(time.DateOnly, c.ConferenceStart); err != nil {
			// Unparseable; export falls back to per-event dates only.
			c.ConferenceStart = ""
		}
	}
}

// StartDate returns ConferenceStart parsed in loc, and false when unset.
func (c *Config) StartDate(loc *time.Location) (time.Time, bool) {
	if c.ConferenceStart == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, c.ConferenceStart, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600)
//     and returned.
//   - Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path as YAML via a temp file + rename, leaving the final
// file with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".timetable-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
