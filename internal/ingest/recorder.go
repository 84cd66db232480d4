// v2
// internal/ingest/recorder.go

// Package ingest consumes raw motion payloads from the transport and appends
// them to the event store. The device reports its own clock inside the
// payload, but only the server's arrival time is trusted for analytics; the
// device timestamp is kept for log correlation and nothing else.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunoribeirol/lumosMQTT/internal/metrics"
	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// ErrMalformedPayload marks payloads that were dropped before reaching the
// event store: unparseable JSON or a missing timestamp field.
var ErrMalformedPayload = errors.New("malformed motion payload")

// EventWriter is the slice of the store the ingest path appends through.
type EventWriter interface {
	Insert(ctx context.Context, timestamp int64) (store.MotionEvent, error)
}

// motionWire is the device payload shape: {"timestamp": 1732708465}.
type motionWire struct {
	Timestamp *json.Number `json:"timestamp"`
}

// Recorder validates one payload and appends one event. Both the Kafka
// consumer and the internal HTTP ingest endpoint funnel through it, so the
// drop rules and the arrival-time canonicalization live in exactly one place.
type Recorder struct {
	writer EventWriter
	log    *slog.Logger
	now    func() time.Time
}

// NewRecorder wires the recorder to a store and logger.
func NewRecorder(writer EventWriter, log *slog.Logger) *Recorder {
	return &Recorder{writer: writer, log: log, now: time.Now}
}

// Record parses the payload, drops it if malformed, and otherwise stores a
// motion event stamped with the server's arrival time. The returned error is
// ErrMalformedPayload for dropped payloads and a wrapped store error for
// failed writes; callers decide whether either is fatal (for the Kafka
// consumer neither is).
func (r *Recorder) Record(ctx context.Context, payload []byte) (store.MotionEvent, error) {
	metrics.IncMotionMessage()

	deviceTS, err := decodeMotionPayload(payload)
	if err != nil {
		reason := metrics.DropReasonJSONError
		if errors.Is(err, errMissingTimestamp) {
			reason = metrics.DropReasonMissingTimestamp
		}
		metrics.IncMotionDrop(reason)
		r.log.Warn("motion_payload_dropped", "reason", reason, "err", err)
		return store.MotionEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	arrival := r.now().Unix()
	ev, err := r.writer.Insert(ctx, arrival)
	if err != nil {
		metrics.IncStoreError()
		r.log.Error("motion_store_failed", "err", err)
		return store.MotionEvent{}, fmt.Errorf("store motion event: %w", err)
	}

	metrics.IncMotionStored()
	r.log.Info("motion_event_stored",
		"id", ev.ID,
		"timestamp", ev.Timestamp,
		"day", ev.Day,
		"hour", ev.Hour,
		"device_timestamp", deviceTS,
	)
	return ev, nil
}

var errMissingTimestamp = errors.New("missing timestamp")

// decodeMotionPayload extracts the device timestamp. The value is validated
// but not trusted: analytics always use the arrival clock.
func decodeMotionPayload(payload []byte) (int64, error) {
	var wire motionWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return 0, fmt.Errorf("decode payload: %w", err)
	}
	if wire.Timestamp == nil {
		return 0, errMissingTimestamp
	}
	ts, err := wire.Timestamp.Int64()
	if err != nil {
		return 0, fmt.Errorf("timestamp not an integer: %w", err)
	}
	return ts, nil
}
