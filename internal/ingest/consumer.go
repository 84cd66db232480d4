// v2
// internal/ingest/consumer.go
package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/brunoribeirol/lumosMQTT/internal/breaker"
)

// ConsumerConfig captures the runtime tunables required to consume the motion
// topic. All fields must be populated by the caller.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// kafkaMessageFetcher captures the read capability shared by the raw Kafka
// reader and the circuit breaker wrapper.
type kafkaMessageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
}

// breakerFetcher routes fetches through the circuit breaker so a dead broker
// fast-fails instead of stacking timeouts.
type breakerFetcher struct {
	reader *kafka.Reader
	cb     *breaker.Breaker
}

func (f *breakerFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	var msg kafka.Message
	err := f.cb.Execute(ctx, func(ctx context.Context) error {
		var ferr error
		msg, ferr = f.reader.FetchMessage(ctx)
		return ferr
	})
	return msg, err
}

// Consumer streams motion payloads from Kafka and stores them through the
// shared Recorder. It is the single logical writer of the event store.
type Consumer struct {
	cfg      ConsumerConfig
	reader   *kafka.Reader
	fetcher  kafkaMessageFetcher
	cb       *breaker.Breaker
	recorder *Recorder
	log      *slog.Logger
	poll     time.Duration
}

// NewConsumer builds a consumer-group reader wrapped by a circuit breaker
// whose probe dials the first bootstrap broker.
func NewConsumer(cfg ConsumerConfig, recorder *Recorder, log *slog.Logger) (*Consumer, error) {
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if recorder == nil {
		return nil, errors.New("recorder must not be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("motion topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}

	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	probe := func(ctx context.Context) error {
		conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
	cb := breaker.New("motion-consumer", breaker.Config{
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}, log.With(slog.String("component", "breaker")), probe)

	return &Consumer{
		cfg:      cfg,
		reader:   reader,
		fetcher:  &breakerFetcher{reader: reader, cb: cb},
		cb:       cb,
		recorder: recorder,
		log:      log,
		poll:     poll,
	}, nil
}

// Breaker exposes the transport circuit breaker so the liveness endpoint can
// report reachability.
func (c *Consumer) Breaker() *breaker.Breaker {
	return c.cb
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run blocks until the context is cancelled or the reader is closed,
// consuming payloads and appending events. Malformed payloads and store
// errors are logged and skipped; nothing on this path stops the loop except
// shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return errors.New("nil consumer")
	}
	if ctx == nil {
		return errors.New("context must not be nil")
	}

	c.log.Info("motion_consumer_started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group", c.cfg.GroupID),
		slog.String("brokers", strings.Join(c.cfg.Brokers, ",")),
		slog.Duration("pollTimeout", c.poll),
	)
	defer c.log.Info("motion_consumer_stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.fetcher.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if errors.Is(err, breaker.ErrOpen) {
				// Fast-fail window: back off for one poll interval instead of
				// spinning on the open circuit.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.poll):
				}
				continue
			}
			if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, kafka.ErrGroupClosed) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) {
				c.log.Error("motion_consumer_fetch_error", "err", err, "timeout", netErr.Timeout())
				continue
			}
			c.log.Error("motion_consumer_fetch_error", "err", err)
			continue
		}

		if _, err := c.recorder.Record(ctx, msg.Value); err != nil {
			// Malformed payloads are already logged and counted by the
			// recorder; at-least-once delivery means a failed store write is
			// also committed and surfaces only through metrics and logs.
			if !errors.Is(err, ErrMalformedPayload) {
				c.log.Error("motion_consumer_record_error", "offset", msg.Offset, "err", err)
			}
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.log.Error("motion_consumer_commit_error", "err", err)
			}
		}
		commitCancel()
	}
}
