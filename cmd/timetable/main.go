package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"timetable/internal/config"
	appLog "timetable/internal/log"
)

const version = "0.3.0"

func main() {
	// .env is optional.
	_ = godotenv.Load()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		appLog.Error("timetable failed", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "timetable",
		Usage:   "Turn a conference itinerary into day timetables.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "timetable.yaml",
				Usage:   "Path to the YAML config (created with defaults if missing)",
				EnvVars: []string{"TIMETABLE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"TIMETABLE_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Log as JSON instead of text",
				EnvVars: []string{"TIMETABLE_LOG_JSON"},
			},
		},
		Before: func(c *cli.Context) error {
			appLog.Init(os.Stderr, appLog.ParseLevel(c.String("log-level")), c.Bool("log-json"))
			return nil
		},
		Commands: []*cli.Command{
			parseCommand(),
			renderCommand(),
			pdfCommand(),
			serveCommand(),
			dedupCommand(),
			exportCommand(),
		},
	}
}

// loadConfig reads --config and applies the command's flag overrides. Only
// flags the user set win over the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	strs := map[string]*string{
		"db":          &cfg.DB,
		"layout":      &cfg.Layout,
		"outdir":      &cfg.OutputDir,
		"renderer":    &cfg.Renderer,
		"listen":      &cfg.Listen,
		"ui-dir":      &cfg.UIDir,
		"page-size":   &cfg.PageSize,
		"orientation": &cfg.Orientation,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("slot-minutes") {
		cfg.SlotMinutes = c.Int("slot-minutes")
	}
	cfg.Normalize()

	appLog.Debug("effective config",
		"config", path,
		"db", cfg.DB,
		"layout", cfg.Layout,
		"renderer", cfg.Renderer,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
	)
	return cfg, nil
}
