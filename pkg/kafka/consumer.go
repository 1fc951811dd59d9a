package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int

	// MaxAttempts bounds handler invocations per message (default 3).
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between tries
	// (default 100ms).
	RetryBackoff time.Duration
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deadLetterer interface {
	Publish(ctx context.Context, msg kafka.Message, cause error, group string) error
}

// Consumer reads events from one topic and commits each message after its
// handler succeeded, exhausted its attempts or the payload was unreadable.
type Consumer struct {
	reader    messageReader
	cfg       ConsumerConfig
	handler   Handler
	dlq       deadLetterer
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a consumer-group reader for cfg.Topic.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	return &Consumer{reader: r, cfg: cfg, handler: handler, logger: logger}
}

// WithDLQ routes messages that exhaust their attempts to dlq instead of
// dropping them.
func (c *Consumer) WithDLQ(dlq *DLQProducer) *Consumer {
	if dlq != nil {
		c.dlq = dlq
	}
	return c
}

// Start consumes until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group", c.cfg.GroupID),
	)
	defer func() { _ = c.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("topic", c.cfg.Topic))
				return nil
			}
			c.logger.ErrorContext(ctx, "failed to fetch message", slog.String("error", err.Error()))
			if !sleep(ctx, c.cfg.RetryBackoff) {
				return nil
			}
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "failed to commit message",
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	topic := msg.Topic
	if topic == "" {
		topic = c.cfg.Topic
	}

	event, err := DecodeEvent(msg.Value)
	if err != nil {
		messagesConsumed.WithLabelValues(topic, "malformed").Inc()
		c.logger.ErrorContext(ctx, "skipping malformed message",
			slog.String("topic", topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx = extractTrace(ctx, &msg)
	start := time.Now()
	defer func() { handlerDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds()) }()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			messagesConsumed.WithLabelValues(topic, "processed").Inc()
			return
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt < c.cfg.MaxAttempts && !sleep(ctx, time.Duration(attempt)*c.cfg.RetryBackoff) {
			return
		}
	}

	messagesConsumed.WithLabelValues(topic, "failed").Inc()
	c.logger.ErrorContext(ctx, "handler failed after all attempts, skipping message",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.Int64("offset", msg.Offset),
	)
	if c.dlq != nil {
		if err := c.dlq.Publish(ctx, msg, lastErr, c.cfg.GroupID); err != nil {
			c.logger.ErrorContext(ctx, "dead-letter publish failed", slog.String("error", err.Error()))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.reader.Close() })
	return c.closeErr
}
