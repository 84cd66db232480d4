// v1
// internal/analytics/idle.go
package analytics

import (
	"time"

	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// IdleSummary reports the longest motionless interval of the elapsed day and
// the age of the most recent event. LastEventAgeSeconds is nil when the day
// has no events.
type IdleSummary struct {
	MaxIdleSeconds      int64  `json:"maxIdleSeconds"`
	LastEventAgeSeconds *int64 `json:"lastEventAgeSeconds"`
}

// ComputeIdle derives the idle metrics for the elapsed portion of a day.
// Boundary gaps count: the interval from dayStart to the first event and the
// interval from the last event to now both compete for the maximum, so a
// quiet morning or a quiet tail shows up in maxIdleSeconds. With no events at
// all the whole elapsed window is idle.
func ComputeIdle(events []store.MotionEvent, dayStart, now time.Time) IdleSummary {
	startSec := dayStart.Unix()
	nowSec := now.Unix()

	if len(events) == 0 {
		idle := nowSec - startSec
		if idle < 0 {
			idle = 0
		}
		return IdleSummary{MaxIdleSeconds: idle}
	}

	maxIdle := events[0].Timestamp - startSec
	for i := 1; i < len(events); i++ {
		if gap := events[i].Timestamp - events[i-1].Timestamp; gap > maxIdle {
			maxIdle = gap
		}
	}
	last := events[len(events)-1].Timestamp
	if tail := nowSec - last; tail > maxIdle {
		maxIdle = tail
	}
	if maxIdle < 0 {
		maxIdle = 0
	}

	age := nowSec - last
	if age < 0 {
		age = 0
	}
	return IdleSummary{MaxIdleSeconds: maxIdle, LastEventAgeSeconds: &age}
}
