// v3
// internal/analytics/report.go
package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// Source is the slice of the event store the aggregator reads from. A small
// interface keeps the engine testable without a database behind it.
type Source interface {
	EventsForDay(ctx context.Context, day string) ([]store.MotionEvent, error)
	DailyCounts(ctx context.Context, startDay, endDay string) (map[string]int, error)
	HourlyDistribution(ctx context.Context, day string) (map[int]int, error)
	TotalCount(ctx context.Context) (int, error)
}

// Params bundles the calibration settings the engine needs per query.
type Params struct {
	Location   *time.Location
	SessionGap time.Duration
	Energy     EnergyParams
}

// Report is the full metrics response assembled per query. It has no identity
// beyond the request that produced it; every query recomputes it from a fresh
// read of the store.
type Report struct {
	TotalDetections    int            `json:"totalDetections"`
	DetectionsByDay    []int          `json:"detectionsByDay"`
	ActivitiesToday    int            `json:"activitiesToday"`
	HourlyDistribution map[string]int `json:"hourlyDistribution"`
	PeakHours          string         `json:"peakHours"`
	SessionsToday      SessionSummary `json:"sessionsToday"`
	IdleMetrics        IdleSummary    `json:"idleMetrics"`
	EnergyMetrics      EnergySummary  `json:"energyMetrics"`
	Trends             TrendSummary   `json:"trends"`
}

// PeakHoursNone is returned when today has no events and no peak hour exists.
const PeakHoursNone = "N/A"

// BuildReport runs the full aggregation for "today" as seen from now in the
// configured timezone. It pulls today's events, the trailing week's daily
// counts, the hourly histogram, and the all-time total from the store in one
// batch, then derives everything else in memory. Any store error fails the
// whole query; there is no partial report.
func BuildReport(ctx context.Context, src Source, p Params, now time.Time) (*Report, error) {
	local := now.In(p.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.Location)
	today := local.Format(store.DayFormat)
	weekStart := dayStart.AddDate(0, 0, -6)

	total, err := src.TotalCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("total count: %w", err)
	}

	weekCounts, err := src.DailyCounts(ctx, weekStart.Format(store.DayFormat), today)
	if err != nil {
		return nil, fmt.Errorf("weekly counts: %w", err)
	}

	hourly, err := src.HourlyDistribution(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("hourly distribution: %w", err)
	}

	events, err := src.EventsForDay(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("events for today: %w", err)
	}

	// detectionsByDay runs today-first; the dashboard walks it backwards in
	// time. weekOldestFirst is the same data in chronological order for the
	// rolling average.
	byDay := make([]int, 7)
	weekOldestFirst := make([]int, 7)
	for i := 0; i < 7; i++ {
		day := dayStart.AddDate(0, 0, -i).Format(store.DayFormat)
		byDay[i] = weekCounts[day]
		weekOldestFirst[6-i] = weekCounts[day]
	}

	yesterday := dayStart.AddDate(0, 0, -1).Format(store.DayFormat)

	report := &Report{
		TotalDetections:    total,
		DetectionsByDay:    byDay,
		ActivitiesToday:    byDay[0],
		HourlyDistribution: stringKeyed(hourly),
		PeakHours:          formatPeakHours(hourly),
		SessionsToday:      SummarizeSessions(GroupSessions(events, p.SessionGap)),
		IdleMetrics:        ComputeIdle(events, dayStart, local),
		EnergyMetrics:      ComputeEnergy(events, dayStart, local, p.Energy),
		Trends:             ComputeTrends(byDay[0], weekCounts[yesterday], weekOldestFirst),
	}
	return report, nil
}

func stringKeyed(hourly map[int]int) map[string]int {
	out := make(map[string]int, len(hourly))
	for h, c := range hourly {
		out[strconv.Itoa(h)] = c
	}
	return out
}

// formatPeakHours picks the hour with the most events, earliest hour winning
// ties, and renders it as "08h-09h". No events yields the "N/A" sentinel.
func formatPeakHours(hourly map[int]int) string {
	peak := -1
	best := 0
	for h := 0; h < 24; h++ {
		if c, ok := hourly[h]; ok && c > best {
			peak = h
			best = c
		}
	}
	if peak < 0 {
		return PeakHoursNone
	}
	return fmt.Sprintf("%02dh-%02dh", peak, (peak+1)%24)
}
