// v3
// internal/httpapi/handlers.go
package httpapi

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/brunoribeirol/lumosMQTT/internal/analytics"
	"github.com/brunoribeirol/lumosMQTT/internal/metrics"
	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// isoLayout matches the dashboard's expected local datetime rendering,
// seconds precision, no offset.
const isoLayout = "2006-01-02T15:04:05"

const (
	defaultListLimit   = 10
	defaultExportLimit = 1000
)

// handleHealth reports reachability of the event store and of the ingestion
// transport. The overall status follows the store: a backend that cannot
// read events has nothing to serve, while a stale transport only degrades
// freshness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := map[string]string{
		"db":        "ok",
		"transport": s.transport(),
	}
	status := "ok"
	if _, err := s.source.TotalCount(r.Context()); err != nil {
		s.log.Error("health_db_check_failed", "err", err)
		details["db"] = "error"
		status = "error"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"details": details,
	})
}

// handleMetrics runs the full aggregation for today and returns the report.
// Any store error fails the whole query.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := analytics.BuildReport(r.Context(), s.source, s.params, time.Now())
	if err != nil {
		s.log.Error("metrics_query_failed", "err", err)
		metrics.ObserveMetricsRequest(http.StatusInternalServerError, time.Since(start))
		s.writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	metrics.ObserveMetricsRequest(http.StatusOK, time.Since(start))
	s.writeJSON(w, http.StatusOK, report)
}

type eventJSON struct {
	ID          int64  `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	DatetimeIso string `json:"datetimeIso"`
	Hour        int    `json:"hour"`
	Day         string `json:"day"`
}

func (s *Server) eventToJSON(ev store.MotionEvent) eventJSON {
	return eventJSON{
		ID:          ev.ID,
		Timestamp:   ev.Timestamp,
		DatetimeIso: time.Unix(ev.Timestamp, 0).In(s.params.Location).Format(isoLayout),
		Hour:        ev.Hour,
		Day:         ev.Day,
	}
}

// handleEvents lists the most recent raw events, newest first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultListLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	rows, err := s.source.RecentEvents(r.Context(), limit)
	if err != nil {
		s.log.Error("list_events_failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	out := make([]eventJSON, 0, len(rows))
	for _, ev := range rows {
		out = append(out, s.eventToJSON(ev))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleExport streams raw events as CSV, newest first, mirroring the JSON
// listing field for field.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultExportLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	rows, err := s.source.RecentEvents(r.Context(), limit)
	if err != nil {
		s.log.Error("export_events_failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=motion_events.csv`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "timestamp", "datetime_iso", "hour", "day"}); err != nil {
		s.log.Error("export_write_failed", "err", err)
		return
	}
	for _, ev := range rows {
		record := []string{
			strconv.FormatInt(ev.ID, 10),
			strconv.FormatInt(ev.Timestamp, 10),
			time.Unix(ev.Timestamp, 0).In(s.params.Location).Format(isoLayout),
			strconv.Itoa(ev.Hour),
			ev.Day,
		}
		if err := cw.Write(record); err != nil {
			s.log.Error("export_write_failed", "err", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.log.Error("export_flush_failed", "err", err)
	}
}

func parseLimit(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("limit must not be negative")
	}
	return n, nil
}
