package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Handler processes one message value. An error marks the message as rejected.
type Handler func(ctx context.Context, key, value []byte) error

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
}

type Consumer struct {
	reader MessageReader
	log    logging.Logger
	sleep  func(context.Context, time.Duration)
}

func NewConsumer(cfg ConsumerConfig, log logging.Logger) *Consumer {
	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1e3,
		MaxBytes:          10e6,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	return NewConsumerWithReader(r, logging.OrDefault(log).With("topic", cfg.Topic, "group", cfg.GroupID))
}

func NewConsumerWithReader(r MessageReader, log logging.Logger) *Consumer {
	return &Consumer{
		reader: r,
		log:    logging.OrDefault(log).With("component", "kafka.consumer"),
		sleep:  sleepCtx,
	}
}

// Consume fetches until ctx is done. Rejected messages are logged and committed
// so a poison message cannot stall the partition.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			c.log.Info("consumer stopped")
			return ctx.Err()
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF; retry", "backoff", backoff.String())
			} else {
				c.log.Warn("fetch failed; retry", "backoff", backoff.String(), "error", err)
			}
			c.sleep(ctx, backoff)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if err := h(ctx, msg.Key, msg.Value); err != nil {
			c.log.Error("message rejected", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("commit failed; will retry later", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
