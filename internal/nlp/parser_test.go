package nlp

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracker/internal/core"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestParser() *Parser {
	return NewParser(0, WithClock(func() time.Time { return fixedNow }))
}

func parseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("draft date %q is not ISO-8601: %v", s, err)
	}
	return d
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		amount   string
		title    string
		category *int
		date     time.Time
	}{
		{
			name:     "dollar amount with food keyword",
			text:     "Spent $15.50 on coffee",
			amount:   "15.50",
			title:    "Coffee",
			category: core.IntPtr(1),
			date:     fixedNow,
		},
		{
			name:     "dollars word with yesterday",
			text:     "Paid 20 dollars for gas yesterday",
			amount:   "20",
			title:    "Paid gas",
			category: core.IntPtr(2),
			date:     fixedNow.AddDate(0, 0, -1),
		},
		{
			name:     "bare amount is removed from the title",
			text:     "Paid 20 for gas",
			amount:   "20",
			title:    "Paid gas",
			category: core.IntPtr(2),
			date:     fixedNow,
		},
		{
			name:     "days ago offset",
			text:     "Uber 14.25 3 days ago",
			amount:   "14.25",
			title:    "Uber",
			category: core.IntPtr(2),
			date:     fixedNow.AddDate(0, 0, -3),
		},
		{
			name:   "unknown category",
			text:   "Bought a new monitor for $400",
			amount: "400",
			title:  "A new monitor",
			date:   fixedNow,
		},
		{
			name:     "entertainment keyword",
			text:     "movie night 12 bucks",
			amount:   "12",
			title:    "Movie night",
			category: core.IntPtr(3),
			date:     fixedNow,
		},
		{
			name:     "first matching set wins",
			text:     "lunch after the uber ride",
			title:    "Lunch after the uber ride",
			category: core.IntPtr(1),
			date:     fixedNow,
		},
		{
			name:     "yesterday short circuits days ago",
			text:     "Yesterday transit 2 days ago",
			amount:   "2",
			title:    "Transit",
			category: core.IntPtr(2),
			date:     fixedNow.AddDate(0, 0, -1),
		},
		{
			name:   "stripping everything falls back to original",
			text:   "  spent $5 today ",
			amount: "5",
			title:  "Spent $5 today",
			date:   fixedNow,
		},
		{
			name:   "dollar token beats earlier bare number",
			text:   "2 tickets for $30",
			amount: "30",
			title:  "2 tickets",
			date:   fixedNow,
		},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Amount != tt.amount {
				t.Errorf("amount: got %q, want %q", got.Amount, tt.amount)
			}
			if got.Title != tt.title {
				t.Errorf("title: got %q, want %q", got.Title, tt.title)
			}
			switch {
			case tt.category == nil && got.CategoryID != nil:
				t.Errorf("category: got %d, want nil", *got.CategoryID)
			case tt.category != nil && got.CategoryID == nil:
				t.Errorf("category: got nil, want %d", *tt.category)
			case tt.category != nil && *got.CategoryID != *tt.category:
				t.Errorf("category: got %d, want %d", *got.CategoryID, *tt.category)
			}
			if d := parseDate(t, got.Date); !d.Equal(tt.date) {
				t.Errorf("date: got %v, want %v", d, tt.date)
			}
		})
	}
}

func TestParseYesterdayIsAnotherCalendarDay(t *testing.T) {
	p := NewParser(0)
	got, err := p.Parse(context.Background(), "Paid 20 dollars for gas yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := parseDate(t, got.Date).Local()
	today := time.Now()
	if d.Year() == today.Year() && d.YearDay() == today.YearDay() {
		t.Fatalf("expected a date before today, got %v", d)
	}
}

func TestParseValueRejectsNonString(t *testing.T) {
	p := newTestParser()
	for _, v := range []any{nil, 42, map[string]any{"text": "coffee"}} {
		if _, err := p.ParseValue(context.Background(), v); !errors.Is(err, ErrParseFailed) {
			t.Fatalf("ParseValue(%v): expected ErrParseFailed, got %v", v, err)
		}
	}

	got, err := p.ParseValue(context.Background(), "Spent $15.50 on coffee")
	if err != nil || got.Amount != "15.50" {
		t.Fatalf("expected string input to parse, got %+v, %v", got, err)
	}
}

func TestParseRejectsHugeDayOffset(t *testing.T) {
	p := newTestParser()
	_, err := p.Parse(context.Background(), "rent 99999999999999999999 days ago")
	if !errors.Is(err, ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
}

func TestParseHonoursContext(t *testing.T) {
	p := NewParser(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Parse(ctx, "coffee 3"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseWaitsForDelay(t *testing.T) {
	const delay = 20 * time.Millisecond
	p := NewParser(delay)

	start := time.Now()
	if _, err := p.Parse(context.Background(), "coffee 3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("expected at least %v delay, got %v", delay, elapsed)
	}
}
