// Package redisstore keeps sequence counters in Redis, for deployments where
// several API instances share a Redis but not a database.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix       = "sequence:counter:"
	defaultAttempts = 5
)

// CounterStore implements sequence.Store with WATCH/MULTI/EXEC. A transaction
// whose watched counter changed before EXEC is re-run from the start.
type CounterStore struct {
	client   redis.UniversalClient
	attempts int
}

func NewCounterStore(client redis.UniversalClient, attempts int) *CounterStore {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &CounterStore{client: client, attempts: attempts}
}

var _ sequence.Store = (*CounterStore)(nil)

func counterKey(name string) string {
	return keyPrefix + name
}

func (s *CounterStore) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	return readCounter(ctx, s.client, name)
}

func (s *CounterStore) SetCounter(ctx context.Context, name string, value int64) error {
	if err := s.client.Set(ctx, counterKey(name), value, 0).Err(); err != nil {
		return fmt.Errorf("set counter: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// SeedCounter uses SETNX so an existing counter is never overwritten.
func (s *CounterStore) SeedCounter(ctx context.Context, name string, value int64) (int64, error) {
	if err := s.client.SetNX(ctx, counterKey(name), value, 0).Err(); err != nil {
		return 0, fmt.Errorf("seed counter: %w: %w", domain.ErrStoreUnavailable, err)
	}
	c, err := readCounter(ctx, s.client, name)
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (s *CounterStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx sequence.Tx) error) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &watchTx{rtx: rtx, staged: make(map[string]int64)}
			if err := fn(ctx, tx); err != nil {
				return err
			}
			if len(tx.staged) == 0 {
				return nil
			}

			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for name, value := range tx.staged {
					pipe.Set(ctx, counterKey(name), value, 0)
				}
				return nil
			})
			return err
		})

		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}

		log.Debug().Int("attempt", attempt).Msg("counter changed under watch, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}

	return fmt.Errorf("%w: %w after %d attempts", domain.ErrStoreUnavailable, domain.ErrTransactionConflict, s.attempts)
}

// watchTx watches every counter it reads and buffers writes for EXEC.
type watchTx struct {
	rtx    *redis.Tx
	staged map[string]int64
}

func (t *watchTx) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	if v, ok := t.staged[name]; ok {
		return &domain.Counter{Name: name, Value: v}, nil
	}
	if err := t.rtx.Watch(ctx, counterKey(name)).Err(); err != nil {
		return nil, fmt.Errorf("watch counter: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return readCounter(ctx, t.rtx, name)
}

func (t *watchTx) SetCounter(ctx context.Context, name string, value int64) error {
	t.staged[name] = value
	return nil
}

func readCounter(ctx context.Context, c redis.Cmdable, name string) (*domain.Counter, error) {
	raw, err := c.Get(ctx, counterKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCounterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get counter: %w: %w", domain.ErrStoreUnavailable, err)
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("counter %s holds %q: %w", name, raw, domain.ErrInvalidInput)
	}
	return &domain.Counter{Name: name, Value: value}, nil
}
