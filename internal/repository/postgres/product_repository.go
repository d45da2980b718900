package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

// productRow mirrors the products table. Stock and rate columns are nullable in
// imported data and are coerced through domain.SafeNumber.
type productRow struct {
	ID           string          `db:"id"`
	ProductName  string          `db:"product_name"`
	CurrentStock sql.NullFloat64 `db:"current_stock"`
	MinStock     sql.NullFloat64 `db:"min_stock"`
	PurchaseRate sql.NullFloat64 `db:"purchase_rate"`
	SaleRate     sql.NullFloat64 `db:"sale_rate"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:           r.ID,
		ProductName:  r.ProductName,
		CurrentStock: nullNumber(r.CurrentStock),
		MinStock:     nullNumber(r.MinStock),
		PurchaseRate: nullNumber(r.PurchaseRate),
		SaleRate:     nullNumber(r.SaleRate),
		UpdatedAt:    r.UpdatedAt,
	}
}

func nullNumber(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}
	return domain.SafeNumber(v.Float64)
}

const selectProductColumns = `
	SELECT id, product_name, current_stock, min_stock, purchase_rate, sale_rate, updated_at
	FROM products
`

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, selectProductColumns+" ORDER BY product_name"); err != nil {
		return nil, storeError("failed to list products", err)
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toDomain())
	}
	return products, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	err := sqlx.GetContext(ctx, r.db, &row, selectProductColumns+" WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storeError("failed to get product", err)
	}

	p := row.toDomain()
	return &p, nil
}

func (r *productRepository) UpsertProducts(ctx context.Context, products []domain.Product) (int, error) {
	for _, p := range products {
		if p.ID == "" {
			return 0, fmt.Errorf("product %q has no id: %w", p.ProductName, domain.ErrInvalidInput)
		}
	}

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (
				id, product_name, current_stock, min_stock, purchase_rate, sale_rate, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (id)
			DO UPDATE SET
				product_name = EXCLUDED.product_name,
				current_stock = EXCLUDED.current_stock,
				min_stock = EXCLUDED.min_stock,
				purchase_rate = EXCLUDED.purchase_rate,
				sale_rate = EXCLUDED.sale_rate,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range products {
			_, err := stmt.ExecContext(ctx,
				p.ID,
				p.ProductName,
				domain.SafeNumber(p.CurrentStock),
				domain.SafeNumber(p.MinStock),
				domain.SafeNumber(p.PurchaseRate),
				domain.SafeNumber(p.SaleRate),
			)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(products), nil
}

func (r *productRepository) AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return applyAdjustments(ctx, tx, adjustments)
	})
}

const (
	adjustByIDQuery = `
		UPDATE products
		SET current_stock = GREATEST(COALESCE(current_stock, 0) + $2::double precision, 0),
			purchase_rate = CASE WHEN $3::double precision > 0 THEN $3::double precision ELSE purchase_rate END,
			updated_at = NOW()
		WHERE id = $1
	`

	adjustByNameQuery = `
		UPDATE products
		SET current_stock = GREATEST(COALESCE(current_stock, 0) + $2::double precision, 0),
			purchase_rate = CASE WHEN $3::double precision > 0 THEN $3::double precision ELSE purchase_rate END,
			updated_at = NOW()
		WHERE id = (
			SELECT id FROM products
			WHERE LOWER(TRIM(product_name)) = LOWER(TRIM($1))
			ORDER BY id
			LIMIT 1
		)
	`
)

// applyAdjustments updates stock by id and falls back to a case-insensitive
// name match. Stock never drops below zero. A line matching no product aborts the surrounding transaction.
func applyAdjustments(ctx context.Context, tx *sqlx.Tx, adjustments []domain.StockAdjustment) error {
	for _, adj := range adjustments {
		var affected int64
		if adj.ProductID != "" {
			res, err := tx.ExecContext(ctx, adjustByIDQuery, adj.ProductID, adj.Delta, adj.PurchaseRate)
			if err != nil {
				return fmt.Errorf("failed to adjust stock for %s: %w", adj.ProductID, err)
			}
			affected, _ = res.RowsAffected()
		}

		if affected == 0 && adj.ProductName != "" {
			res, err := tx.ExecContext(ctx, adjustByNameQuery, adj.ProductName, adj.Delta, adj.PurchaseRate)
			if err != nil {
				return fmt.Errorf("failed to adjust stock for %q: %w", adj.ProductName, err)
			}
			affected, _ = res.RowsAffected()
		}

		if affected == 0 {
			return fmt.Errorf("product %q (%s): %w", adj.ProductName, adj.ProductID, domain.ErrNotFound)
		}
	}
	return nil
}
