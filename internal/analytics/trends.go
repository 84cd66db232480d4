// v2
// internal/analytics/trends.go
package analytics

import "math"

// TrendSummary compares today's activity against yesterday and the rolling
// week. The deltas are nil when their baseline is zero: without a baseline a
// percentage change is undefined, not infinite and not zero.
type TrendSummary struct {
	TodayCount            int      `json:"todayCount"`
	YesterdayCount        int      `json:"yesterdayCount"`
	WeekAverage           float64  `json:"weekAverage"`
	DeltaVsYesterdayPct   *float64 `json:"deltaVsYesterdayPercent"`
	DeltaVsWeekAveragePct *float64 `json:"deltaVsWeekPercent"`
}

// ComputeTrends derives the trend deltas. weekCounts holds the last seven
// daily counts including today, oldest first.
func ComputeTrends(todayCount, yesterdayCount int, weekCounts []int) TrendSummary {
	var weekAverage float64
	if len(weekCounts) > 0 {
		sum := 0
		for _, c := range weekCounts {
			sum += c
		}
		weekAverage = float64(sum) / float64(len(weekCounts))
	}

	out := TrendSummary{
		TodayCount:     todayCount,
		YesterdayCount: yesterdayCount,
		WeekAverage:    round2(weekAverage),
	}

	if yesterdayCount > 0 {
		d := round2(100.0 * float64(todayCount-yesterdayCount) / float64(yesterdayCount))
		out.DeltaVsYesterdayPct = &d
	}
	if weekAverage > 0 {
		d := round2(100.0 * (float64(todayCount) - weekAverage) / weekAverage)
		out.DeltaVsWeekAveragePct = &d
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
