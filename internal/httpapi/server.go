// v3
// internal/httpapi/server.go

// Package httpapi exposes the query boundary of the backend: the metrics
// report, the raw event listing and CSV export, the liveness probe, and the
// internal ingest endpoint. Handlers read from the store through narrow
// interfaces so tests can run against fakes.
package httpapi

import (
	"context"
	"io"
	"net/http"

	"log/slog"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/brunoribeirol/lumosMQTT/internal/analytics"
	"github.com/brunoribeirol/lumosMQTT/internal/ingest"
	"github.com/brunoribeirol/lumosMQTT/internal/metrics"
	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// EventSource is everything the read-side handlers need from the store.
type EventSource interface {
	analytics.Source
	RecentEvents(ctx context.Context, limit int) ([]store.MotionEvent, error)
}

// Server carries the handler dependencies.
type Server struct {
	log       *slog.Logger
	source    EventSource
	recorder  *ingest.Recorder
	params    analytics.Params
	transport func() string
}

// New builds the handler set. transport reports the ingestion transport's
// reachability (the breaker state) for the health endpoint; a nil func is
// reported as "unknown".
func New(log *slog.Logger, source EventSource, recorder *ingest.Recorder, params analytics.Params, transport func() string) *Server {
	if transport == nil {
		transport = func() string { return "unknown" }
	}
	return &Server{
		log:       log,
		source:    source,
		recorder:  recorder,
		params:    params,
		transport: transport,
	}
}

// Router wires all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/ingest", s.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/metrics", s.handleOpsMetrics).Methods(http.MethodGet)

	return r
}

// Wrap applies access logging, CORS for the dashboard, and request IDs
// around the router. accessLog receives Apache-style lines; the dashboard is
// served from another origin, hence the permissive CORS on the API.
func Wrap(accessLog io.Writer, router http.Handler) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(accessLog, cors(requestID(router)))
}

func (s *Server) handleOpsMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, metrics.Render()); err != nil {
		s.log.Error("write_metrics_failed", "err", err)
	}
}
