package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"

	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
)

// Publisher is the narrow surface components receive for emitting events.
// Messages with the same key land on the same partition, which is what gives
// the pipeline its per-store ordering guarantee.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Producer writes JSON events to the configured Kafka brokers, one writer per
// topic.
type Producer struct {
	cfg     config.KafkaConfig
	logg    *logger.Logger
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewProducer builds a producer for the configured brokers.
func NewProducer(cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	return &Producer{
		cfg:     cfg,
		logg:    logg,
		writers: make(map[string]*kafka.Writer),
	}, nil
}

func (p *Producer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:  kafka.TCP(p.cfg.Brokers...),
		Topic: topic,
		// Hash balancing keeps all messages for one key on one partition.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	p.writers[topic] = w
	return w
}

// Publish marshals the payload and writes it keyed to the topic, retrying
// transient broker errors with exponential backoff.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if key == "" {
		return errors.New("partition key is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	attempts := p.cfg.PublishAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if werr := p.writer(topic).WriteMessages(ctx, msg); werr != nil {
			return retry.RetryableError(werr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{"topic": topic, "key": key})
		p.logg.Info(logCtx, "event published")
	}
	return nil
}

// Close shuts down every topic writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}
