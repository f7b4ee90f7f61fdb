// Package web serves the layout editor: a small JSON API over the event
// database and layout file, the live matrix view and the editor UI.
package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"timetable/internal/config"
	"timetable/internal/layout"
	appLog "timetable/internal/log"
	"timetable/internal/model"
	"timetable/internal/render"
	"timetable/internal/schedule"
)

// maxLayoutBody caps POST /api/layout payloads.
const maxLayoutBody = 1 << 20

// EventStore is the part of the event database the server reads.
type EventStore interface {
	Days(ctx context.Context) ([]string, error)
	EventsForDay(ctx context.Context, day string) ([]model.Event, error)
}

// Server provides the HTTP API for layout editing.
type Server struct {
	cfg   *config.Config
	store EventStore
	mux   *http.ServeMux

	// layoutMu serializes layout reads and writes so a GET never sees a
	// half-applied POST.
	layoutMu sync.Mutex
}

// embeddedStatic is the built-in editor UI, used when cfg.UIDir does not
// exist.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store EventStore) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials mean auth is off.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Timetable", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully. When cfg.RefreshCron is set, refresh runs on that schedule
// for as long as the server is up.
func StartServer(ctx context.Context, cfg *config.Config, store EventStore, refresh func(context.Context) error) error {
	s := NewServer(cfg, store)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if refresh != nil && cfg.RefreshCron != "" {
		stop, err := StartRefresher(ctx, cfg.RefreshCron, refresh)
		if err != nil {
			return err
		}
		defer stop()
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("POST /api/layout", s.handleLayoutUpdate)
	s.mux.HandleFunc("GET /timetable/{day}", s.handleTimetable)

	// Everything else is the editor UI.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type daysResponse struct {
	Days []string `json:"days"`
}

// handleDays lists the days that have events, in conference order.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.store.Days(r.Context())
	if err != nil {
		appLog.Error("api days: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load days")
		return
	}
	if days == nil {
		days = []string{}
	}
	writeJSON(w, http.StatusOK, daysResponse{Days: days})
}

type eventsResponse struct {
	Day    string        `json:"day"`
	Events []model.Event `json:"events"`
}

// handleEvents returns every event of a day, hidden ones included, so the
// editor can toggle them.
//
// GET /api/events?day=Sunday
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	events, err := s.store.EventsForDay(r.Context(), day)
	if err != nil {
		appLog.Error("api events: load failed", err, "day", day)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Day: day, Events: sortEvents(events)})
}

// sortEvents orders timed events by (start, end) after the untimed ones, as
// the database query puts NULL times first.
func sortEvents(events []model.Event) []model.Event {
	var untimed []model.Event
	for _, ev := range events {
		if !ev.Timed() {
			untimed = append(untimed, ev)
		}
	}
	out := append(untimed, schedule.SortByInterval(schedule.Timed(events))...)
	if out == nil {
		out = []model.Event{}
	}
	return out
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	l, err := s.loadLayout()
	if err != nil {
		appLog.Error("api layout: load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load layout")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type okResponse struct {
	OK bool `json:"ok"`
}

// handleLayoutUpdate replaces the layout with the posted one. The body is
// normalized, so malformed members are dropped rather than rejected. An
// empty body resets the layout.
func (s *Server) handleLayoutUpdate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLayoutBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var payload any = map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	s.layoutMu.Lock()
	err = layout.Save(s.cfg.Layout, layout.Normalize(payload))
	s.layoutMu.Unlock()
	if err != nil {
		appLog.Error("api layout: save failed", err, "path", s.cfg.Layout)
		writeError(w, http.StatusInternalServerError, "failed to save layout")
		return
	}
	appLog.Info("layout saved", "path", s.cfg.Layout)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleTimetable renders the live matrix view of one day with the current
// layout. ?pdf=1 switches to print mode.
func (s *Server) handleTimetable(w http.ResponseWriter, r *http.Request) {
	day := r.PathValue("day")
	if model.DayIndex(day) == model.UnknownDayIndex {
		writeError(w, http.StatusNotFound, "unknown day")
		return
	}
	events, err := s.store.EventsForDay(r.Context(), day)
	if err != nil {
		appLog.Error("timetable: load failed", err, "day", day)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	l, err := s.loadLayout()
	if err != nil {
		appLog.Error("timetable: layout load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load layout")
		return
	}
	visible, _, _ := l.Apply(events, day)
	opts := render.OptionsFor(s.cfg, l, day)
	opts.PDF = r.URL.Query().Get("pdf") == "1"

	var buf bytes.Buffer
	ok, err := render.MatrixPage(&buf, day, visible, opts)
	if err != nil {
		appLog.Error("timetable: render failed", err, "day", day)
		writeError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no timed events for day")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) loadLayout() (layout.Layout, error) {
	s.layoutMu.Lock()
	defer s.layoutMu.Unlock()
	return layout.Load(s.cfg.Layout)
}

// staticFileServer serves cfg.UIDir when it exists, else the embedded UI.
func (s *Server) staticFileServer() http.Handler {
	var root http.FileSystem
	if info, err := os.Stat(s.cfg.UIDir); err == nil && info.IsDir() {
		appLog.Info("serving UI from directory", "dir", s.cfg.UIDir)
		root = http.Dir(s.cfg.UIDir)
	} else {
		sub, err := fs.Sub(embeddedStatic, "static")
		if err != nil {
			appLog.Error("failed to initialize embedded static filesystem", err)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "static UI not available", http.StatusServiceUnavailable)
			})
		}
		root = http.FS(sub)
	}

	fileServer := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unknown /api/* paths must 404 as JSON, never fall through to HTML.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "Unknown endpoint")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
