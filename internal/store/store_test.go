// v1
// internal/store/store_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, loc *time.Location) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "lumos.db"), loc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestInsertDerivesDayAndHour(t *testing.T) {
	s := openTestStore(t, time.UTC)
	ctx := context.Background()

	ts := time.Date(2024, 11, 27, 14, 30, 0, 0, time.UTC).Unix()
	ev, err := s.Insert(ctx, ts)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ev.ID == 0 {
		t.Fatalf("expected assigned id, got 0")
	}
	if ev.Day != "2024-11-27" {
		t.Fatalf("expected day 2024-11-27, got %q", ev.Day)
	}
	if ev.Hour != 14 {
		t.Fatalf("expected hour 14, got %d", ev.Hour)
	}
}

func TestInsertDerivesInConfiguredTimezone(t *testing.T) {
	// UTC-3: 01:30 UTC on the 28th is still 22:30 on the 27th locally.
	loc := time.FixedZone("UTC-3", -3*3600)
	s := openTestStore(t, loc)
	ctx := context.Background()

	ts := time.Date(2024, 11, 28, 1, 30, 0, 0, time.UTC).Unix()
	ev, err := s.Insert(ctx, ts)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ev.Day != "2024-11-27" {
		t.Fatalf("expected local day 2024-11-27, got %q", ev.Day)
	}
	if ev.Hour != 22 {
		t.Fatalf("expected local hour 22, got %d", ev.Hour)
	}
}

func TestEventsForDayOrdered(t *testing.T) {
	s := openTestStore(t, time.UTC)
	ctx := context.Background()

	day := time.Date(2024, 11, 27, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int64{300, 100, 200} {
		if _, err := s.Insert(ctx, day.Unix()+offset); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := s.EventsForDay(ctx, "2024-11-27")
	if err != nil {
		t.Fatalf("events for day: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			t.Fatalf("events not ascending: %v", events)
		}
	}
}

func TestDailyCountsAndTotal(t *testing.T) {
	s := openTestStore(t, time.UTC)
	ctx := context.Background()

	days := map[string]int{
		"2024-11-25": 2,
		"2024-11-26": 1,
		"2024-11-27": 3,
	}
	for day, n := range days {
		d, err := time.ParseInLocation(DayFormat, day, time.UTC)
		if err != nil {
			t.Fatalf("parse day: %v", err)
		}
		for i := 0; i < n; i++ {
			if _, err := s.Insert(ctx, d.Unix()+int64(i)); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
	}

	counts, err := s.DailyCounts(ctx, "2024-11-25", "2024-11-27")
	if err != nil {
		t.Fatalf("daily counts: %v", err)
	}
	for day, want := range days {
		if counts[day] != want {
			t.Fatalf("expected %d events on %s, got %d", want, day, counts[day])
		}
	}

	one, err := s.DailyCount(ctx, "2024-11-26")
	if err != nil {
		t.Fatalf("daily count: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1 event on 2024-11-26, got %d", one)
	}

	total, err := s.TotalCount(ctx)
	if err != nil {
		t.Fatalf("total count: %v", err)
	}
	if total != 6 {
		t.Fatalf("expected total 6, got %d", total)
	}
}

func TestHourlyDistribution(t *testing.T) {
	s := openTestStore(t, time.UTC)
	ctx := context.Background()

	day := time.Date(2024, 11, 27, 0, 0, 0, 0, time.UTC)
	for _, hour := range []int{8, 8, 14} {
		if _, err := s.Insert(ctx, day.Add(time.Duration(hour)*time.Hour).Unix()); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	dist, err := s.HourlyDistribution(ctx, "2024-11-27")
	if err != nil {
		t.Fatalf("hourly distribution: %v", err)
	}
	if dist[8] != 2 || dist[14] != 1 {
		t.Fatalf("unexpected distribution: %#v", dist)
	}
	if len(dist) != 2 {
		t.Fatalf("expected only populated hours, got %#v", dist)
	}
}

func TestRecentEventsNewestFirst(t *testing.T) {
	s := openTestStore(t, time.UTC)
	ctx := context.Background()

	base := time.Date(2024, 11, 27, 0, 0, 0, 0, time.UTC).Unix()
	for i := int64(0); i < 5; i++ {
		if _, err := s.Insert(ctx, base+i*60); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	recent, err := s.RecentEvents(ctx, 3)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].Timestamp != base+4*60 {
		t.Fatalf("expected newest first, got %v", recent)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp > recent[i-1].Timestamp {
			t.Fatalf("events not descending: %v", recent)
		}
	}

	all, err := s.RecentEvents(ctx, 0)
	if err != nil {
		t.Fatalf("recent events unlimited: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected all 5 events, got %d", len(all))
	}
}
