package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/retailbill/backend-go/internal/cache"
	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/redisstore"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/andresuchdata/retailbill/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

func countersCommand(cfg *config.Config) *cli.Command {
	flags := []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Counter store: postgres or redis",
			Value: cfg.Store.CounterBackend,
		},
	}

	return &cli.Command{
		Name:  "counters",
		Usage: "Inspect or repair the bill and GRN number counters",
		Subcommands: []*cli.Command{
			{
				Name:   "peek",
				Usage:  "Print the next bill and GRN numbers without reserving them",
				Flags:  flags,
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return withCounterStore(c, cfg, runPeek)
				},
			},
			{
				Name:   "resync",
				Usage:  "Raise each counter to the highest saved document number",
				Flags:  flags,
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					return withCounterStore(c, cfg, runResync)
				},
			},
		},
	}
}

type counterAction func(ctx context.Context, store sequence.Store, seeds map[string]sequence.SeedFunc) error

func withCounterStore(c *cli.Context, cfg *config.Config, action counterAction) error {
	db := dbFrom(c)
	if err := db.EnsureSchema(c.Context); err != nil {
		return err
	}

	var store sequence.Store
	switch c.String("backend") {
	case "", "postgres":
		store = postgres.NewCounterStore(db, cfg.Store.TxMaxRetries)
	case "redis":
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			return err
		}
		defer client.Close()
		store = redisstore.NewCounterStore(client, cfg.Store.TxMaxRetries)
	default:
		return fmt.Errorf("unsupported counter backend %q", c.String("backend"))
	}

	seeds := map[string]sequence.SeedFunc{
		domain.SequenceBillNumber: postgres.NewBillRepository(db).MaxBillNo,
		domain.SequenceGRNNumber:  postgres.NewPurchaseRepository(db).MaxGRNNo,
	}
	return action(c.Context, store, seeds)
}

func runPeek(ctx context.Context, store sequence.Store, seeds map[string]sequence.SeedFunc) error {
	allocator := sequence.NewAllocator(store)
	for name, seed := range seeds {
		allocator.Register(name, seed)
	}

	for _, name := range []string{domain.SequenceBillNumber, domain.SequenceGRNNumber} {
		next, err := allocator.PeekNext(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d\n", name, next)
	}
	return nil
}

// runResync never lowers a counter, so numbers already handed out stay unique.
func runResync(ctx context.Context, store sequence.Store, seeds map[string]sequence.SeedFunc) error {
	for _, name := range []string{domain.SequenceBillNumber, domain.SequenceGRNNumber} {
		maxSaved, err := seeds[name](ctx)
		if err != nil {
			return err
		}

		err = store.RunTransaction(ctx, func(ctx context.Context, tx sequence.Tx) error {
			current, err := tx.GetCounter(ctx, name)
			switch {
			case errors.Is(err, domain.ErrCounterNotFound):
			case err != nil:
				return err
			case current.Value >= maxSaved:
				logger.Log.Info().Str("sequence", name).Int64("value", current.Value).Msg("counter already in sync")
				return nil
			}
			logger.Log.Info().Str("sequence", name).Int64("value", maxSaved).Msg("counter raised")
			return tx.SetCounter(ctx, name, maxSaved)
		})
		if err != nil {
			return fmt.Errorf("failed to resync %s: %w", name, err)
		}
	}
	return nil
}
