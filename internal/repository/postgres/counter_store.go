package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/jmoiron/sqlx"
)

const (
	selectCounterQuery = `SELECT name, value, updated_at FROM counters WHERE name = $1`

	upsertCounterQuery = `
		INSERT INTO counters (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	seedCounterQuery = `
		INSERT INTO counters (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO NOTHING
	`
)

// CounterStore keeps sequence counters in the counters table.
type CounterStore struct {
	db       *DB
	attempts int
}

func NewCounterStore(db *DB, attempts int) *CounterStore {
	return &CounterStore{db: db, attempts: attempts}
}

var _ sequence.Store = (*CounterStore)(nil)

func (s *CounterStore) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	return getCounter(ctx, s.db, selectCounterQuery, name)
}

func (s *CounterStore) SetCounter(ctx context.Context, name string, value int64) error {
	if _, err := s.db.ExecContext(ctx, upsertCounterQuery, name, value); err != nil {
		return storeError("upsert counter", err)
	}
	return nil
}

// SeedCounter inserts the counter unless a row already exists, then returns the
// stored value. A concurrent reservation that created the row first wins.
func (s *CounterStore) SeedCounter(ctx context.Context, name string, value int64) (int64, error) {
	if _, err := s.db.ExecContext(ctx, seedCounterQuery, name, value); err != nil {
		return 0, storeError("seed counter", err)
	}
	c, err := getCounter(ctx, s.db, selectCounterQuery, name)
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

// RunTransaction locks the counter rows it reads (FOR UPDATE) inside a
// SERIALIZABLE transaction, so two first-time seeders cannot both commit.
func (s *CounterStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx sequence.Tx) error) error {
	return s.db.WithSerializableTx(ctx, s.attempts, func(tx *sqlx.Tx) error {
		return fn(ctx, &counterTx{tx: tx})
	})
}

type counterTx struct {
	tx *sqlx.Tx
}

func (t *counterTx) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	return getCounter(ctx, t.tx, selectCounterQuery+" FOR UPDATE", name)
}

func (t *counterTx) SetCounter(ctx context.Context, name string, value int64) error {
	if _, err := t.tx.ExecContext(ctx, upsertCounterQuery, name, value); err != nil {
		return storeError("upsert counter", err)
	}
	return nil
}

func getCounter(ctx context.Context, q sqlx.QueryerContext, query, name string) (*domain.Counter, error) {
	var c domain.Counter
	err := sqlx.GetContext(ctx, q, &c, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCounterNotFound
	}
	if err != nil {
		return nil, storeError("select counter", err)
	}
	return &c, nil
}
