// v1
// internal/analytics/sessions.go

// Package analytics turns a flat sequence of timestamped motion events into
// the derived metrics served by the query API: presence sessions, idle gaps,
// hourly histograms, energy estimates, and trend deltas. Everything here is
// recomputed from a fresh batch of events on every query; the package holds
// no state between calls.
package analytics

import (
	"math"
	"time"

	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// Session is a maximal run of motion events where no two consecutive events
// are further apart than the session gap. Derived, never persisted.
type Session struct {
	Start int64 `json:"startTimestamp"`
	End   int64 `json:"endTimestamp"`
	Count int   `json:"eventCount"`
}

// Duration returns the session length in seconds. Single-event sessions have
// duration zero.
func (s Session) Duration() int64 {
	return s.End - s.Start
}

// SessionSummary condenses a day's sessions for the metrics report.
type SessionSummary struct {
	Count                  int     `json:"count"`
	AverageDurationSeconds float64 `json:"averageDurationSeconds"`
	MaxDurationSeconds     int64   `json:"maxDurationSeconds"`
}

// GroupSessions partitions a day's events, ordered by timestamp ascending,
// into presence sessions. Two consecutive events share a session iff their
// timestamps are at most gap apart.
func GroupSessions(events []store.MotionEvent, gap time.Duration) []Session {
	if len(events) == 0 {
		return nil
	}
	gapSec := int64(gap / time.Second)

	var sessions []Session
	current := Session{Start: events[0].Timestamp, End: events[0].Timestamp, Count: 1}
	for _, ev := range events[1:] {
		if ev.Timestamp-current.End <= gapSec {
			current.End = ev.Timestamp
			current.Count++
			continue
		}
		sessions = append(sessions, current)
		current = Session{Start: ev.Timestamp, End: ev.Timestamp, Count: 1}
	}
	sessions = append(sessions, current)
	return sessions
}

// SummarizeSessions reduces sessions to the count/average/max triple exposed
// by the report. An empty day yields the all-zero summary.
func SummarizeSessions(sessions []Session) SessionSummary {
	if len(sessions) == 0 {
		return SessionSummary{}
	}
	var sum, max int64
	for _, s := range sessions {
		d := s.Duration()
		sum += d
		if d > max {
			max = d
		}
	}
	avg := float64(sum) / float64(len(sessions))
	return SessionSummary{
		Count:                  len(sessions),
		AverageDurationSeconds: math.Round(avg),
		MaxDurationSeconds:     max,
	}
}
