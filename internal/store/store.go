// Package store persists parsed events in a SQLite database.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	appLog "timetable/internal/log"
	"timetable/internal/model"
)

// ErrNoEvents is returned when asked to store an empty event list.
var ErrNoEvents = errors.New("store: no events to write")

// Meta keys written alongside the events.
const (
	MetaSourcePDF   = "source_pdf"
	MetaGeneratedAt = "generated_at"
	MetaDedupedFrom = "deduped_from"
)

type eventRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	DayName   string `gorm:"column:day_name;not null;index:idx_events_day"`
	DayIndex  int    `gorm:"column:day_index;not null"`
	DateText  string `gorm:"column:date_text"`
	DateISO   string `gorm:"column:date_iso"`
	StartTime string `gorm:"column:start_time;not null"`
	EndTime   string `gorm:"column:end_time;not null"`
	StartMin  *int   `gorm:"column:start_min"`
	EndMin    *int   `gorm:"column:end_min"`
	Room      string `gorm:"column:room"`
	Title     string `gorm:"column:title"`
	Session   string `gorm:"column:session"`
	TalkTitle string `gorm:"column:talk_title"`
}

func (eventRow) TableName() string { return "events" }

type metaRow struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
}

func (metaRow) TableName() string { return "meta" }

// Store wraps the gorm handle for the events database.
type Store struct {
	db   *gorm.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&eventRow{}, &metaRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReplaceAll clears the database and inserts events, recording sourceName and
// the generation time in the meta table. Stored events get fresh IDs, which
// are returned.
func (s *Store) ReplaceAll(ctx context.Context, events []model.Event, sourceName string) ([]model.Event, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		r := toRow(ev)
		r.ID = 0
		rows = append(rows, r)
	}
	meta := map[string]string{
		MetaSourcePDF:   sourceName,
		MetaGeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearAll(tx); err != nil {
			return err
		}
		if err := tx.CreateInBatches(&rows, 200).Error; err != nil {
			return err
		}
		return upsertMeta(tx, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("store: replace events: %w", err)
	}

	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	appLog.Info("store: events written", "path", s.path, "count", len(out))
	return out, nil
}

// WriteAll stores events keeping their IDs, plus the given meta entries.
// Existing rows are replaced.
func (s *Store) WriteAll(ctx context.Context, events []model.Event, meta map[string]string) error {
	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, toRow(ev))
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearAll(tx); err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, 200).Error; err != nil {
				return err
			}
		}
		return upsertMeta(tx, meta)
	})
}

// AllEvents returns every event ordered by (day index, start, end, id).
func (s *Store) AllEvents(ctx context.Context) ([]model.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Order("day_index, start_min, end_min, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: load events: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// EventsByDay groups all events by day name.
func (s *Store) EventsByDay(ctx context.Context) (map[string][]model.Event, error) {
	events, err := s.AllEvents(ctx)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string][]model.Event)
	for _, ev := range events {
		byDay[ev.DayName] = append(byDay[ev.DayName], ev)
	}
	return byDay, nil
}

// EventsForDay returns the events of one day ordered by (start, end, id).
func (s *Store) EventsForDay(ctx context.Context, day string) ([]model.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("day_name = ?", day).
		Order("start_min, end_min, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", day, err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// Days lists the days that have events, in model.DayOrder.
func (s *Store) Days(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&eventRow{}).Distinct().Pluck("day_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("store: list days: %w", err)
	}
	days := make([]string, 0, len(names))
	for _, d := range model.DayOrder {
		if slices.Contains(names, d) {
			days = append(days, d)
		}
	}
	return days, nil
}

// Meta returns all meta key/value pairs.
func (s *Store) Meta(ctx context.Context) (map[string]string, error) {
	var rows []metaRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: load meta: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func clearAll(tx *gorm.DB) error {
	if err := tx.Where("1 = 1").Delete(&eventRow{}).Error; err != nil {
		return err
	}
	// ids restart at 1 on every rebuild
	if err := tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", eventRow{}.TableName()).Error; err != nil {
		return err
	}
	return tx.Where("1 = 1").Delete(&metaRow{}).Error
}

func upsertMeta(tx *gorm.DB, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}
	rows := make([]metaRow, 0, len(meta))
	for k, v := range meta {
		rows = append(rows, metaRow{Key: k, Value: v})
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func toRow(ev model.Event) eventRow {
	return eventRow{
		ID:        ev.ID,
		DayName:   ev.DayName,
		DayIndex:  ev.DayIndex,
		DateText:  ev.DateText,
		DateISO:   ev.DateISO,
		StartTime: ev.StartTime,
		EndTime:   ev.EndTime,
		StartMin:  ev.StartMin,
		EndMin:    ev.EndMin,
		Room:      ev.Room,
		Title:     ev.Title,
		Session:   ev.Session,
		TalkTitle: ev.TalkTitle,
	}
}

func fromRow(r eventRow) model.Event {
	return model.Event{
		ID:        r.ID,
		DayName:   r.DayName,
		DayIndex:  r.DayIndex,
		DateText:  r.DateText,
		DateISO:   r.DateISO,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		StartMin:  r.StartMin,
		EndMin:    r.EndMin,
		Room:      r.Room,
		Title:     r.Title,
		Session:   r.Session,
		TalkTitle: r.TalkTitle,
	}
}
