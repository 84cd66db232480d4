// v4
// internal/app/app.go

// Package app wires configuration, logging, storage, ingestion, and the HTTP
// API into one runnable service with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/brunoribeirol/lumosMQTT/internal/analytics"
	"github.com/brunoribeirol/lumosMQTT/internal/config"
	"github.com/brunoribeirol/lumosMQTT/internal/httpapi"
	"github.com/brunoribeirol/lumosMQTT/internal/ingest"
	"github.com/brunoribeirol/lumosMQTT/internal/store"
)

// Application owns the long-lived components of the backend: the event
// store, the motion consumer, and the HTTP server.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	logFile  *os.File
	events   *store.Store
	consumer *ingest.Consumer
	server   *http.Server
}

// New prepares a fully wired service instance using the supplied
// configuration. An unreachable event store is fatal here: with nothing to
// read from or append to, the process has no useful degraded mode.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := newLogger(io.MultiWriter(os.Stdout, lf), cfg.LogLevel)

	events, err := store.Open(cfg.DatabasePath, cfg.Location)
	if err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("open event store: %w", err)
	}
	logger.Info("event_store_opened", slog.String("path", events.Path()), slog.String("timezone", cfg.Timezone))

	recorder := ingest.NewRecorder(events, logger.With(slog.String("component", "ingest")))
	consumer, err := ingest.NewConsumer(ingest.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.MotionTopic,
		GroupID:     cfg.MotionGroupID,
		PollTimeout: cfg.MotionPollTimeout,
	}, recorder, logger.With(slog.String("component", "motion_consumer")))
	if err != nil {
		_ = events.Close()
		_ = lf.Close()
		return nil, fmt.Errorf("motion consumer init: %w", err)
	}

	params := analytics.Params{
		Location:   cfg.Location,
		SessionGap: cfg.SessionGap,
		Energy: analytics.EnergyParams{
			Window:     cfg.MotionWindow,
			PowerHighW: cfg.LEDPowerHighW,
			PowerLowW:  cfg.LEDPowerLowW,
		},
	}
	api := httpapi.New(
		logger.With(slog.String("component", "httpapi")),
		events,
		recorder,
		params,
		func() string { return consumer.Breaker().State().String() },
	)
	handler := httpapi.Wrap(io.MultiWriter(os.Stdout, lf), api.Router())

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:      cfg,
		logger:   logger,
		logFile:  lf,
		events:   events,
		consumer: consumer,
		server:   server,
	}, nil
}

// Logger exposes the configured slog logger so callers (such as main) can
// emit structured logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Run blocks until the context is cancelled or the HTTP server terminates
// unexpectedly, then shuts down gracefully within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpCh := make(chan error, 1)
	go func() {
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		httpCh <- a.server.ListenAndServe()
	}()

	consumerCh := make(chan error, 1)
	go func() {
		consumerCh <- a.consumer.Run(ctx)
	}()

	var httpErr error
	for {
		select {
		case err := <-httpCh:
			httpCh = nil
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http_server_error", slog.Any("err", err))
				httpErr = err
			} else {
				a.logger.Info("server_closed")
			}
			cancel()
		case err := <-consumerCh:
			consumerCh = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("motion_consumer_error", slog.Any("err", err))
			} else {
				a.logger.Info("motion_consumer_completed")
			}
			cancel()
		case <-ctx.Done():
			a.logger.Info("shutdown_signal")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("server_shutdown_failed", slog.Any("err", err))
				if httpErr == nil {
					httpErr = fmt.Errorf("shutdown: %w", err)
				}
			}
			shutdownCancel()

			if httpCh != nil {
				if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) && httpErr == nil {
					httpErr = err
				}
			}
			if consumerCh != nil {
				select {
				case <-consumerCh:
				case <-time.After(a.cfg.ShutdownTimeout):
					a.logger.Warn("motion_consumer_shutdown_timeout")
				}
			}
			return httpErr
		}
	}
}

// Close releases the consumer, the store, and the log file. Safe to call
// after Run returns.
func (a *Application) Close() error {
	var firstErr error
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			firstErr = fmt.Errorf("close consumer: %w", err)
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close event store: %w", err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close log file: %w", err)
		}
	}
	return firstErr
}
