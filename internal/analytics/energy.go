// v2
// internal/analytics/energy.go
package analytics

import (
	"time"

	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// EnergySummary is the reconstructed high/low brightness split of the elapsed
// day converted to energy units.
type EnergySummary struct {
	HighSecondsToday   int64   `json:"highSecondsToday"`
	LowSecondsToday    int64   `json:"lowSecondsToday"`
	EnergyUsedWh       float64 `json:"energyUsedWh"`
	EnergySavedPercent float64 `json:"energySavedPercent"`
}

// EnergyParams are the calibration constants of the estimate. Window must
// match the firmware's motion-hold window or the reconstruction drifts from
// what the LED actually did.
type EnergyParams struct {
	Window     time.Duration
	PowerHighW float64
	PowerLowW  float64
}

// ComputeEnergy reconstructs the actuator state over [dayStart, now] from raw
// event timestamps. Each event opens (or extends) a high-brightness window of
// fixed length; overlapping windows coalesce. The savings percentage compares
// against a baseline that keeps the LED on high for the whole elapsed period.
//
// A day without events reports 100% savings: the LED never left the low
// state, so relative to the always-high baseline the saving is maximal.
func ComputeEnergy(events []store.MotionEvent, dayStart, now time.Time, p EnergyParams) EnergySummary {
	startSec := dayStart.Unix()
	nowSec := now.Unix()
	elapsed := nowSec - startSec
	if elapsed < 0 {
		elapsed = 0
	}

	if len(events) == 0 || elapsed == 0 {
		return EnergySummary{
			HighSecondsToday:   0,
			LowSecondsToday:    elapsed,
			EnergyUsedWh:       0,
			EnergySavedPercent: 100,
		}
	}

	windowSec := int64(p.Window / time.Second)
	highSeconds := mergedHighSeconds(events, startSec, nowSec, windowSec)
	if highSeconds > elapsed {
		highSeconds = elapsed
	}
	lowSeconds := elapsed - highSeconds

	usedWh := (float64(highSeconds)*p.PowerHighW + float64(lowSeconds)*p.PowerLowW) / 3600.0
	baselineWh := float64(elapsed) * p.PowerHighW / 3600.0

	savedPercent := 100.0
	if baselineWh > 0 {
		savedPercent = 100.0 * (1.0 - usedWh/baselineWh)
		if savedPercent < 0 {
			savedPercent = 0
		}
	}

	return EnergySummary{
		HighSecondsToday:   highSeconds,
		LowSecondsToday:    lowSeconds,
		EnergyUsedWh:       round4(usedWh),
		EnergySavedPercent: round2(savedPercent),
	}
}

// mergedHighSeconds sums the union of the per-event intervals
// [ts, ts+window], clipped to [startSec, endSec]. Events arrive ordered by
// timestamp, so a single forward sweep merges overlaps.
func mergedHighSeconds(events []store.MotionEvent, startSec, endSec, windowSec int64) int64 {
	var total int64
	var curStart, curEnd int64
	open := false

	for _, ev := range events {
		s := ev.Timestamp
		e := ev.Timestamp + windowSec
		if e < startSec || s > endSec {
			continue
		}
		if s < startSec {
			s = startSec
		}
		if e > endSec {
			e = endSec
		}
		if s >= e {
			continue
		}
		if !open {
			curStart, curEnd = s, e
			open = true
			continue
		}
		if s <= curEnd {
			if e > curEnd {
				curEnd = e
			}
			continue
		}
		total += curEnd - curStart
		curStart, curEnd = s, e
	}
	if open {
		total += curEnd - curStart
	}
	return total
}
