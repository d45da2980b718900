package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		name       TEXT PRIMARY KEY,
		value      BIGINT NOT NULL DEFAULT 0 CHECK (value >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		product_name  TEXT NOT NULL,
		current_stock DOUBLE PRECISION,
		min_stock     DOUBLE PRECISION,
		purchase_rate DOUBLE PRECISION,
		sale_rate     DOUBLE PRECISION,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_lower_name ON products (LOWER(product_name))`,
	`CREATE TABLE IF NOT EXISTS bills (
		id            UUID PRIMARY KEY,
		bill_no       BIGINT NOT NULL UNIQUE,
		customer_name TEXT NOT NULL DEFAULT '',
		discount      NUMERIC(14, 2) NOT NULL DEFAULT 0,
		total         NUMERIC(14, 2) NOT NULL,
		items         JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id               UUID PRIMARY KEY,
		grn_no           BIGINT NOT NULL UNIQUE,
		supplier_name    TEXT NOT NULL DEFAULT '',
		supplier_invoice TEXT NOT NULL DEFAULT '',
		total            NUMERIC(14, 2) NOT NULL,
		items            JSONB NOT NULL,
		received_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
