package parse

import (
	"errors"
	"testing"
)

const sample = `SICB 2026 Annual Meeting
Final itinerary

Saturday
Opening Reception
Date: Sat, January 03 • Time: 6:00 PM - 8:00 PM • Room: Grand
Ballroom

Sunday
Session: S1 Evolution of Flight
Talk Title: Wing loading in early
birds
Date: Sun, January 04 • Time: 9:15 AM - 9:30 AM • Room: Hall A

Session 12: Plenary
Date: Mon, January 05 • Time: 12 PM • Room: Auditorium

Broken block
Date: January 04 • Time: 9 AM • Room: Hall B

Lunch
Date: Sun, January 04 • Time: TBA • Room:
`

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents(sample, Options{})
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(events), events)
	}

	reception := events[0]
	if reception.DayName != "Saturday" || reception.DayIndex != 0 {
		t.Errorf("reception day = %q/%d", reception.DayName, reception.DayIndex)
	}
	if reception.Title != "Opening Reception" {
		t.Errorf("reception title = %q", reception.Title)
	}
	if reception.Room != "Grand Ballroom" {
		t.Errorf("continuation line not joined into room: %q", reception.Room)
	}
	if reception.StartMin == nil || *reception.StartMin != 18*60 || *reception.EndMin != 20*60 {
		t.Errorf("reception times = %v-%v", reception.StartMin, reception.EndMin)
	}
	if reception.DateISO != "2026-01-03" || reception.DateText != "Sat, January 03" {
		t.Errorf("reception dates = %q / %q", reception.DateISO, reception.DateText)
	}

	talk := events[1]
	if talk.Session != "S1 Evolution of Flight" {
		t.Errorf("session = %q", talk.Session)
	}
	if talk.TalkTitle != "Wing loading in early birds" {
		t.Errorf("talk title = %q", talk.TalkTitle)
	}
	if talk.Title != talk.TalkTitle {
		t.Errorf("title should fall back to talk title, got %q", talk.Title)
	}
	if talk.StartTime != "9:15 AM" || talk.EndTime != "9:30 AM" {
		t.Errorf("clock strings = %q - %q", talk.StartTime, talk.EndTime)
	}

	plenary := events[2]
	// Listed under the Sunday heading, so Sunday wins over "Mon".
	if plenary.DayName != "Sunday" {
		t.Errorf("plenary day = %q, want Sunday", plenary.DayName)
	}
	if plenary.Title != "Session 12: Plenary" {
		t.Errorf("plenary title = %q", plenary.Title)
	}
	if *plenary.StartMin != 720 || *plenary.EndMin != 720 {
		t.Errorf("single time should fill both ends, got %d-%d", *plenary.StartMin, *plenary.EndMin)
	}

	lunch := events[3]
	if lunch.Timed() {
		t.Errorf("TBA time should leave minutes unset")
	}
	if lunch.Room != "" {
		t.Errorf("room = %q, want empty", lunch.Room)
	}
	// The unreadable "Broken block" date line clears the buffer.
	if lunch.Title != "Lunch" {
		t.Errorf("lunch title = %q", lunch.Title)
	}
}

func TestParseEventsJoinsContinuationLines(t *testing.T) {
	// A non-blank line after a date line belongs to it unless it opens a
	// new block.
	text := "Monday\nTalk\nDate: Mon, March 02 • Time: 9 AM - 10 AM • Room: Hall\nC\nSession: Next\nDate: Mon, March 02 • Time: 11 AM - 12 PM • Room: D\n"
	events, err := ParseEvents(text, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Room != "Hall C" {
		t.Errorf("room = %q, want Hall C", events[0].Room)
	}
	if events[1].Session != "Next" || events[1].Title != "Next" {
		t.Errorf("second event session/title = %q/%q", events[1].Session, events[1].Title)
	}
}

func TestParseEventsNoYear(t *testing.T) {
	text := "Monday\nTalk\nDate: Mon, March 02 • Time: 9 AM - 10 AM • Room: A\n"
	events, err := ParseEvents(text, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if events[0].DateISO != "" {
		t.Fatalf("expected no ISO date without a year, got %q", events[0].DateISO)
	}
}

func TestParseEventsEmpty(t *testing.T) {
	_, err := ParseEvents("nothing to see\n", Options{})
	if !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
}

func TestInferYear(t *testing.T) {
	if y := inferYear("Program\nSICB 2025 Atlanta\n", "SICB"); y != 2025 {
		t.Fatalf("got %d, want 2025", y)
	}
	if y := inferYear("2024 without tag\n", "SICB"); y != 0 {
		t.Fatalf("got %d, want 0", y)
	}
}
