package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/redis"
)

// Manager tracks processed business keys per consumer using Redis SETNX with a TTL.
// Keys follow the `wh:idempotency:evt:processed:<consumer>:<key>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks keys as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkProcessed returns true if the key has already been processed and
// otherwise marks it as processed with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, businessKey string) (bool, error) {
	key, err := m.processedKey(consumer, businessKey)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete clears the processed marker so the key can be handled again.
func (m *Manager) Delete(ctx context.Context, consumer, businessKey string) error {
	key, err := m.processedKey(consumer, businessKey)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(consumer, businessKey string) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if businessKey == "" {
		return "", errors.New("business key is required")
	}
	scope := fmt.Sprintf("evt:processed:%s", consumer)
	return m.store.IdempotencyKey(scope, businessKey), nil
}
