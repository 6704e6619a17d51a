package eventlog

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
)

// Message is one record read from the event log.
type Message struct {
	Key       []byte
	Value     []byte
	Offset    int64
	Partition int
	Time      time.Time
}

// Handler processes one message. Returning an error leaves the offset
// uncommitted so the message is redelivered; handlers must therefore be
// idempotent on their natural business keys.
type Handler func(ctx context.Context, msg Message) error

// Reader is the narrow consumption surface, satisfied by *Consumer and by
// in-memory fakes in tests.
type Reader interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// Consumer wraps a Kafka group reader. Group readers preserve per-key order
// within a partition; offsets start from the beginning of the log so a fresh
// group can replay for recovery.
type Consumer struct {
	reader *kafka.Reader
	logg   *logger.Logger
}

// NewConsumer builds a group consumer for one topic.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string, logg *logger.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if groupID == "" {
		return nil, errors.New("group id is required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.ReadTimeout,
	})
	return &Consumer{reader: reader, logg: logg}, nil
}

// Fetch blocks until a message is available or the context is canceled.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Offset:    msg.Offset,
		Partition: msg.Partition,
		Time:      msg.Time,
	}, nil
}

// Commit marks the message as processed.
func (c *Consumer) Commit(ctx context.Context, msg Message) error {
	return c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     c.reader.Config().Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
}

// Run fetches and handles messages until the context is canceled. Handler
// errors are logged and the offset is left uncommitted for redelivery.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.logg != nil {
				c.logg.Error(ctx, "event log fetch failed", err)
			}
			continue
		}
		if err := handler(ctx, msg); err != nil {
			if c.logg != nil {
				logCtx := c.logg.WithFields(ctx, map[string]any{
					"offset": msg.Offset,
					"key":    string(msg.Key),
				})
				c.logg.Error(logCtx, "event handler failed, leaving offset uncommitted", err)
			}
			continue
		}
		if err := c.Commit(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.logg != nil {
				c.logg.Error(ctx, "offset commit failed", err)
			}
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
