package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"timetable/internal/capture"
	"timetable/internal/config"
	"timetable/internal/ics"
	"timetable/internal/layout"
	appLog "timetable/internal/log"
	"timetable/internal/model"
	"timetable/internal/parse"
	"timetable/internal/render"
	"timetable/internal/schedule"
	"timetable/internal/store"
	"timetable/internal/web"
)

func dbFlag() cli.Flag {
	return &cli.StringFlag{Name: "db", Usage: "SQLite event database"}
}

func layoutFlag() cli.Flag {
	return &cli.StringFlag{Name: "layout", Usage: "Layout overrides JSON"}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse an itinerary PDF (or its text) into the event database.",
		ArgsUsage: "<itinerary.pdf|itinerary.txt>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{Name: "json", Usage: "Also write the parsed events to this JSON file"},
			&cli.StringFlag{Name: "year-tag", Value: parse.DefaultYearTag, Usage: "Header word that marks the line carrying the year"},
		},
		Action: func(c *cli.Context) error {
			input := c.Args().First()
			if input == "" {
				return errors.New("parse: an input file is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			var text string
			if strings.EqualFold(filepath.Ext(input), ".txt") {
				raw, err := os.ReadFile(input)
				if err != nil {
					return err
				}
				text = string(raw)
			} else {
				text, err = parse.ExtractText(c.Context, input)
				if err != nil {
					return err
				}
			}

			events, err := parse.ParseEvents(text, parse.Options{YearTag: c.String("year-tag")})
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			stored, err := db.ReplaceAll(c.Context, events, filepath.Base(input))
			if err != nil {
				return err
			}

			if path := c.String("json"); path != "" {
				out, err := json.MarshalIndent(stored, "", "  ")
				if err != nil {
					return err
				}
				if err := config.WriteFileAtomic(path, out, 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(c.App.Writer, "Parsed %d events into %s\n", len(stored), cfg.DB)
			return nil
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render one HTML page per day.",
		Flags: []cli.Flag{
			dbFlag(),
			layoutFlag(),
			&cli.StringFlag{Name: "outdir", Usage: "Output directory"},
			&cli.StringFlag{Name: "renderer", Usage: "table, timeline or matrix"},
			&cli.IntFlag{Name: "slot-minutes", Usage: "Matrix row height in minutes"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := checkRenderer(c); err != nil {
				return err
			}
			db, err := store.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			pages, err := renderSite(c.Context, cfg, db, cfg.OutputDir, cfg.Renderer, false)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Rendered %d files in %s\n", len(pages)+1, cfg.OutputDir)
			return nil
		},
	}
}

func pdfCommand() *cli.Command {
	return &cli.Command{
		Name:  "pdf",
		Usage: "Print the matrix view of each day to PDF with headless Chromium.",
		Flags: []cli.Flag{
			dbFlag(),
			layoutFlag(),
			&cli.StringFlag{Name: "outdir", Usage: "PDF output directory (default: pdf_dir from config)"},
			&cli.StringFlag{Name: "page-size", Usage: "CSS page size, e.g. A4 or Letter"},
			&cli.StringFlag{Name: "orientation", Usage: "landscape or portrait"},
			&cli.IntFlag{Name: "slot-minutes", Usage: "Matrix row height in minutes"},
			&cli.DurationFlag{Name: "timeout", Value: capture.DefaultTimeoutSec * time.Second, Usage: "Per-page print timeout"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			outDir := cfg.PDFDir
			if c.IsSet("outdir") {
				// For pdf, --outdir names the PDF directory, not the HTML one.
				outDir = c.String("outdir")
			}
			db, err := store.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			htmlDir, err := os.MkdirTemp("", "timetable-pdf-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(htmlDir)

			pages, err := renderSite(c.Context, cfg, db, htmlDir, config.RendererMatrix, true)
			if err != nil {
				return err
			}
			if len(pages) == 0 {
				fmt.Fprintln(c.App.Writer, "No events found to render.")
				return nil
			}

			for _, p := range pages {
				url, err := capture.FileURL(p.Path)
				if err != nil {
					return err
				}
				out := filepath.Join(outDir, "day-"+strings.ToLower(p.Day)+".pdf")
				appLog.Info("printing PDF", "day", p.Day, "output", out)
				if err := capture.PrintPDF(c.Context, capture.PDFOptions{
					URL:        url,
					OutputPath: out,
					Landscape:  capture.IsLandscape(cfg.Orientation),
					Timeout:    c.Duration("timeout"),
				}); err != nil {
					return fmt.Errorf("pdf %s: %w", p.Day, err)
				}
			}
			fmt.Fprintf(c.App.Writer, "Rendered %d PDFs in %s\n", len(pages), outDir)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the layout editor (room order, hidden events, display options).",
		Flags: []cli.Flag{
			dbFlag(),
			layoutFlag(),
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "ui-dir", Usage: "Serve the editor UI from this directory instead of the built-in one"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			refresh := func(ctx context.Context) error {
				_, err := renderSite(ctx, cfg, db, cfg.OutputDir, cfg.Renderer, false)
				return err
			}
			return web.StartServer(c.Context, cfg, db, refresh)
		},
	}
}

func dedupCommand() *cli.Command {
	return &cli.Command{
		Name:  "dedup",
		Usage: "Drop overlapping events in the same room and day, keeping the longest, into a new database.",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{Name: "out", Value: "schedule-dedup.db", Usage: "Output database"},
			&cli.BoolFlag{Name: "overwrite", Usage: "Replace the output database if it exists"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			out := c.String("out")
			if err := checkDedupPaths(cfg.DB, out, c.Bool("overwrite")); err != nil {
				return err
			}

			src, err := store.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer src.Close()
			events, err := src.AllEvents(c.Context)
			if err != nil {
				return err
			}
			meta, err := src.Meta(c.Context)
			if err != nil {
				return err
			}
			return writeDeduped(c, events, meta, cfg.DB, out)
		},
	}
}

// checkRenderer rejects an explicit --renderer the config layer would
// otherwise silently replace with the default.
func checkRenderer(c *cli.Context) error {
	if !c.IsSet("renderer") {
		return nil
	}
	switch r := c.String("renderer"); r {
	case config.RendererTable, config.RendererTimeline, config.RendererMatrix:
		return nil
	default:
		return fmt.Errorf("%w: %q", render.ErrUnknownRenderer, r)
	}
}

func checkDedupPaths(in, out string, overwrite bool) error {
	if _, err := os.Stat(in); err != nil {
		return fmt.Errorf("input DB not found: %s", in)
	}
	if sameFile(in, out) {
		return fmt.Errorf("output DB must differ from input: %s", out)
	}
	if _, err := os.Stat(out); err == nil {
		if !overwrite {
			return fmt.Errorf("output DB already exists: %s (use --overwrite to replace)", out)
		}
		if err := os.Remove(out); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func sameFile(a, b string) bool {
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}

func writeDeduped(c *cli.Context, events []model.Event, meta map[string]string, in, out string) error {
	kept, removed := schedule.Dedup(events)

	dst, err := store.Open(out)
	if err != nil {
		return err
	}
	defer dst.Close()

	if meta == nil {
		meta = map[string]string{}
	}
	meta[store.MetaGeneratedAt] = time.Now().UTC().Format(time.RFC3339)
	meta[store.MetaDedupedFrom] = in
	if err := dst.WriteAll(c.Context, kept, meta); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Kept %d events, removed %d overlaps. Wrote %s\n", len(kept), removed, out)
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the visible timed events as an iCalendar file.",
		Flags: []cli.Flag{
			dbFlag(),
			layoutFlag(),
			&cli.StringFlag{Name: "out", Value: "timetable.ics", Usage: `Output file, or "-" for stdout`},
			&cli.StringFlag{Name: "name", Usage: "Calendar name (default: title from config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			byDay, err := db.EventsByDay(c.Context)
			if err != nil {
				return err
			}
			l, err := layout.Load(cfg.Layout)
			if err != nil {
				return err
			}
			var events []model.Event
			for _, day := range model.DayOrder {
				visible, _, _ := l.Apply(byDay[day], day)
				events = append(events, visible...)
			}

			loc := cfg.Location()
			opts := ics.ExportOptions{Name: cfg.Title, Location: loc}
			if c.IsSet("name") {
				opts.Name = c.String("name")
			}
			if start, ok := cfg.StartDate(loc); ok {
				opts.Start = start
			}

			var w io.Writer = c.App.Writer
			out := c.String("out")
			var f *os.File
			if out != "-" {
				f, err = os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			res, err := ics.Export(w, events, opts)
			if err != nil {
				return err
			}
			if f != nil {
				if err := f.Close(); err != nil {
					return err
				}
			}
			appLog.Info("calendar exported", "output", out, "events", res.Written, "skipped", res.Skipped)
			if out != "-" {
				fmt.Fprintf(c.App.Writer, "Exported %d events to %s (%d skipped)\n", res.Written, out, res.Skipped)
			}
			return nil
		},
	}
}

// renderSite renders every day with the current layout into dir.
func renderSite(ctx context.Context, cfg *config.Config, src render.EventSource, dir, renderer string, pdf bool) ([]render.SitePage, error) {
	l, err := layout.Load(cfg.Layout)
	if err != nil {
		return nil, err
	}
	base := render.OptionsFor(cfg, l, "")
	base.PDF = pdf
	return render.RenderSite(ctx, src, dir, renderer, l, base)
}
