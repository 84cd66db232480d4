// v3
// internal/store/store.go

// Package store persists motion events in an append-only SQLite log. Every
// event is keyed by its server arrival time; the calendar day and hour columns
// are derived from that timestamp in the configured timezone so the analytics
// queries can bucket by day without date arithmetic in SQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MotionEvent is one stored presence detection. Rows are immutable: the log
// is append-only and nothing in this service updates or deletes them.
type MotionEvent struct {
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Hour      int    `json:"hour"`
	Day       string `json:"day"`
}

// DayFormat is the layout of the Day column.
const DayFormat = "2006-01-02"

// Store wraps the SQLite connection together with the timezone used for
// day/hour derivation.
type Store struct {
	db   *sql.DB
	loc  *time.Location
	path string
}

// Open creates the database file (and its directory) if needed, applies the
// pragmas and schema, and returns a ready Store.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db, loc: loc, path: path}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS motion_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		day TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_motion_events_day ON motion_events(day);
	CREATE INDEX IF NOT EXISTS idx_motion_events_timestamp ON motion_events(timestamp);
	`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return err
	}
	return nil
}

// Insert appends one motion event. The hour and day columns are derived from
// the timestamp in the store's timezone, never supplied by the caller.
func (s *Store) Insert(ctx context.Context, timestamp int64) (MotionEvent, error) {
	t := time.Unix(timestamp, 0).In(s.loc)
	ev := MotionEvent{
		Timestamp: timestamp,
		Hour:      t.Hour(),
		Day:       t.Format(DayFormat),
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO motion_events (timestamp, hour, day) VALUES (?, ?, ?)",
		ev.Timestamp, ev.Hour, ev.Day,
	)
	if err != nil {
		return MotionEvent{}, fmt.Errorf("insert motion event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return MotionEvent{}, fmt.Errorf("read inserted id: %w", err)
	}
	ev.ID = id
	return ev, nil
}

// EventsForDay returns all events for a day ordered by timestamp ascending.
func (s *Store) EventsForDay(ctx context.Context, day string) ([]MotionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, hour, day FROM motion_events WHERE day = ? ORDER BY timestamp ASC",
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("query events for day %s: %w", day, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DailyCount returns the number of events stored for a day.
func (s *Store) DailyCount(ctx context.Context, day string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM motion_events WHERE day = ?", day,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count events for day %s: %w", day, err)
	}
	return total, nil
}

// DailyCounts returns a day -> count map for the inclusive range
// [startDay, endDay]. Days without events are absent from the map.
func (s *Store) DailyCounts(ctx context.Context, startDay, endDay string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day, COUNT(*) FROM motion_events WHERE day BETWEEN ? AND ? GROUP BY day ORDER BY day ASC",
		startDay, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("count events in range [%s, %s]: %w", startDay, endDay, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var total int
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		out[day] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}
	return out, nil
}

// HourlyDistribution returns an hour -> count map for a day. Hours without
// events are absent from the map.
func (s *Store) HourlyDistribution(ctx context.Context, day string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT hour, COUNT(*) FROM motion_events WHERE day = ? GROUP BY hour ORDER BY hour ASC",
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("hourly distribution for day %s: %w", day, err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var hour, total int
		if err := rows.Scan(&hour, &total); err != nil {
			return nil, fmt.Errorf("scan hourly count: %w", err)
		}
		out[hour] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hourly counts: %w", err)
	}
	return out, nil
}

// TotalCount returns the all-time number of stored events.
func (s *Store) TotalCount(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM motion_events").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count all events: %w", err)
	}
	return total, nil
}

// RecentEvents returns the newest events first. A non-positive limit returns
// the whole log.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]MotionEvent, error) {
	query := "SELECT id, timestamp, hour, day FROM motion_events ORDER BY timestamp DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]MotionEvent, error) {
	var out []MotionEvent
	for rows.Next() {
		var ev MotionEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Hour, &ev.Day); err != nil {
			return nil, fmt.Errorf("scan motion event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate motion events: %w", err)
	}
	return out, nil
}
