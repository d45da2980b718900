// Package sequence hands out bill and GRN numbers from named counters.
//
// ReserveNext is the only way to obtain a number that will be persisted: it runs
// the read-increment-write inside the store's transaction primitive. PeekNext is
// a display-only preview and may be overtaken by a concurrent reservation.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// SeedFunc returns the highest number already used by existing documents of a
// sequence. It is consulted once, when the counter record does not exist yet.
type SeedFunc func(ctx context.Context) (int64, error)

// Tx is the transactional handle passed to RunTransaction callbacks.
type Tx interface {
	// GetCounter returns domain.ErrCounterNotFound when the sequence is unseeded.
	GetCounter(ctx context.Context, name string) (*domain.Counter, error)
	SetCounter(ctx context.Context, name string, value int64) error
}

// Store is the persistence collaborator. RunTransaction must make fn atomic and
// retry it on write conflicts; fn may therefore run more than once.
type Store interface {
	Tx
	// SeedCounter writes value only when the counter does not exist yet and
	// returns the value stored afterwards. It never overwrites an existing counter.
	SeedCounter(ctx context.Context, name string, value int64) (int64, error)
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Allocator reserves and previews sequence numbers.
type Allocator struct {
	store Store

	mu    sync.RWMutex
	seeds map[string]SeedFunc
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{
		store: store,
		seeds: make(map[string]SeedFunc),
	}
}

// Register sets the seed query for a sequence. Unregistered sequences seed from 0.
func (a *Allocator) Register(name string, seed SeedFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeds[name] = seed
}

func (a *Allocator) seedFor(name string) SeedFunc {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if seed, ok := a.seeds[name]; ok && seed != nil {
		return seed
	}
	return func(context.Context) (int64, error) { return 0, nil }
}

// PeekNext returns the number the next reservation would get, seeding the
// counter if it does not exist. The seed is insert-if-absent, so a reservation
// that lands while the seed query runs is kept and reflected in the result.
func (a *Allocator) PeekNext(ctx context.Context, name string) (int64, error) {
	counter, err := a.store.GetCounter(ctx, name)
	if err == nil {
		return counter.Value + 1, nil
	}
	if !errors.Is(err, domain.ErrCounterNotFound) {
		return 0, fmt.Errorf("peek %s: read counter: %w", name, err)
	}

	seed, err := a.seed(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("peek %s: %w", name, err)
	}

	current, err := a.store.SeedCounter(ctx, name, seed)
	if err != nil {
		return 0, fmt.Errorf("peek %s: write seed: %w", name, err)
	}
	if current == seed {
		log.Info().Str("sequence", name).Int64("seed", seed).Msg("sequence counter seeded")
	}
	return current + 1, nil
}

// ReserveNext atomically advances the counter and returns the new value.
func (a *Allocator) ReserveNext(ctx context.Context, name string) (int64, error) {
	var reserved int64
	err := a.store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		current, err := a.current(ctx, tx, name)
		if err != nil {
			return err
		}

		next := current + 1
		if err := tx.SetCounter(ctx, name, next); err != nil {
			return fmt.Errorf("write counter: %w", err)
		}
		reserved = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reserve %s: %w", name, err)
	}

	log.Debug().Str("sequence", name).Int64("value", reserved).Msg("sequence number reserved")
	return reserved, nil
}

// current reads the counter inside a transaction, seeding it when absent.
func (a *Allocator) current(ctx context.Context, tx Tx, name string) (int64, error) {
	counter, err := tx.GetCounter(ctx, name)
	if err == nil {
		return counter.Value, nil
	}
	if !errors.Is(err, domain.ErrCounterNotFound) {
		return 0, fmt.Errorf("read counter: %w", err)
	}

	seed, err := a.seed(ctx, name)
	if err != nil {
		return 0, err
	}

	if err := tx.SetCounter(ctx, name, seed); err != nil {
		return 0, fmt.Errorf("write seed: %w", err)
	}

	log.Info().Str("sequence", name).Int64("seed", seed).Msg("sequence counter seeded")
	return seed, nil
}

func (a *Allocator) seed(ctx context.Context, name string) (int64, error) {
	seed, err := a.seedFor(name)(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed counter: %w", err)
	}
	if seed < 0 {
		seed = 0
	}
	return seed, nil
}
