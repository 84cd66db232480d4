// v2
// internal/metrics/metrics.go

// Package metrics keeps the service's operational counters in-process and
// renders them in Prometheus exposition format on demand. The registry is
// deliberately tiny: a handful of counters and one latency histogram cover
// what operators need from a single-sensor backend.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type counter struct {
	mu    sync.Mutex
	value uint64
}

func newCounter() *counter {
	return &counter{}
}

func (c *counter) inc() {
	c.mu.Lock()
	c.value++
	c.mu.Unlock()
}

func (c *counter) snapshot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type counterVec struct {
	mu     sync.RWMutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (c *counterVec) inc(label string) {
	c.mu.Lock()
	c.values[label]++
	c.mu.Unlock()
}

func (c *counterVec) snapshot() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.RWMutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(edges []float64) *histogram {
	sorted := append([]float64(nil), edges...)
	sort.Float64s(sorted)
	return &histogram{buckets: sorted, counts: make([]uint64, len(sorted))}
}

func (h *histogram) observe(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if v < 0 {
		v = 0
	}
	h.mu.Lock()
	for i, upper := range h.buckets {
		if v <= upper {
			h.counts[i]++
		}
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

func (h *histogram) snapshot() (buckets []float64, counts []uint64, sum float64, count uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	buckets = append([]float64(nil), h.buckets...)
	counts = append([]uint64(nil), h.counts...)
	sum = h.sum
	count = h.count
	return
}

var (
	motionMessagesTotal = newCounter()
	motionStoredTotal   = newCounter()
	motionDropTotals    = newCounterVec()
	storeErrorsTotal    = newCounter()
	metricsRequests     = newCounterVec()
	metricsLatencies    = newHistogram([]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1})
)

// Drop reason identifiers exported so ingest logic can increment counters
// without stringly-typed constants.
const (
	DropReasonJSONError        = "json_error"
	DropReasonMissingTimestamp = "missing_timestamp"
)

// IncMotionMessage increments the total count of consumed motion payloads.
func IncMotionMessage() {
	motionMessagesTotal.inc()
}

// IncMotionStored records a motion event that reached the event store.
func IncMotionStored() {
	motionStoredTotal.inc()
}

// IncMotionDrop increments the classified drop counter for payloads that
// failed decoding or validation.
func IncMotionDrop(reason string) {
	if strings.TrimSpace(reason) == "" {
		reason = "unknown"
	}
	motionDropTotals.inc(reason)
}

// IncStoreError tracks event-store write failures on the ingest path.
func IncStoreError() {
	storeErrorsTotal.inc()
}

// ObserveMetricsRequest stores the status distribution and latency of
// /api/metrics queries.
func ObserveMetricsRequest(status int, duration time.Duration) {
	metricsRequests.inc(strconv.Itoa(status))
	metricsLatencies.observe(duration.Seconds())
}

// Render exports all registered metrics in Prometheus exposition format.
func Render() string {
	var b strings.Builder

	writeMetricHeader(&b, "lumos_motion_messages_consumed_total", "counter")
	writeSimpleCounter(&b, "lumos_motion_messages_consumed_total", motionMessagesTotal.snapshot())
	b.WriteByte('\n')

	writeMetricHeader(&b, "lumos_motion_events_stored_total", "counter")
	writeSimpleCounter(&b, "lumos_motion_events_stored_total", motionStoredTotal.snapshot())
	b.WriteByte('\n')

	writeMetricHeader(&b, "lumos_motion_drop_total", "counter")
	writeCounter(&b, "lumos_motion_drop_total", "reason", motionDropTotals.snapshot())
	b.WriteByte('\n')

	writeMetricHeader(&b, "lumos_store_errors_total", "counter")
	writeSimpleCounter(&b, "lumos_store_errors_total", storeErrorsTotal.snapshot())
	b.WriteByte('\n')

	writeMetricHeader(&b, "lumos_metrics_requests_total", "counter")
	writeCounter(&b, "lumos_metrics_requests_total", "status", metricsRequests.snapshot())
	b.WriteByte('\n')

	writeMetricHeader(&b, "lumos_metrics_request_duration_seconds", "histogram")
	writeHistogram(&b, "lumos_metrics_request_duration_seconds", metricsLatencies)
	b.WriteByte('\n')

	return b.String()
}

func writeMetricHeader(b *strings.Builder, name, typ string) {
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(typ)
	b.WriteByte('\n')
}

func writeSimpleCounter(b *strings.Builder, name string, value uint64) {
	fmt.Fprintf(b, "%s{} %d\n", name, value)
}

func writeCounter(b *strings.Builder, name, label string, values map[string]uint64) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%s{} %d\n", name, 0)
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(b, "%s{%s=\"%s\"} %d\n", name, label, escapeLabel(key), values[key])
	}
}

func writeHistogram(b *strings.Builder, name string, h *histogram) {
	buckets, counts, sum, count := h.snapshot()
	if len(buckets) == 0 {
		fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", name, count)
		fmt.Fprintf(b, "%s_sum %f\n", name, sum)
		fmt.Fprintf(b, "%s_count %d\n", name, count)
		return
	}
	// observe already increments every bucket at or above the value, so the
	// counts are cumulative as stored and render directly.
	for i, upper := range buckets {
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"} %d\n", name, upper, counts[i])
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", name, count)
	fmt.Fprintf(b, "%s_sum %f\n", name, sum)
	fmt.Fprintf(b, "%s_count %d\n", name, count)
}

func escapeLabel(v string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "\n", "\\n", "\"", "\\\"")
	return replacer.Replace(v)
}
