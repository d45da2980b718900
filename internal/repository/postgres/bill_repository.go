package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type billRepository struct {
	db *DB
}

var (
	_ repository.BillRepository     = (*billRepository)(nil)
	_ repository.PurchaseRepository = (*purchaseRepository)(nil)
	_ repository.ProductRepository  = (*productRepository)(nil)
)

func NewBillRepository(db *DB) *billRepository {
	return &billRepository{db: db}
}

// billRow carries the items column as raw JSONB.
type billRow struct {
	domain.Bill
	ItemsJSON []byte `db:"items"`
}

func (r *billRepository) CreateBill(ctx context.Context, bill *domain.Bill, adjustments []domain.StockAdjustment) error {
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return fmt.Errorf("failed to encode bill items: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO bills (id, bill_no, customer_name, discount, total, items, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			bill.ID,
			bill.BillNo,
			bill.CustomerName,
			bill.Discount,
			bill.Total,
			items,
			bill.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("bill %d already exists: %w", bill.BillNo, domain.ErrInvalidInput)
			}
			return fmt.Errorf("failed to insert bill: %w", err)
		}

		return applyAdjustments(ctx, tx, adjustments)
	})
}

func (r *billRepository) GetBillByNumber(ctx context.Context, billNo int64) (*domain.Bill, error) {
	query := `
		SELECT id, bill_no, customer_name, discount, total, items, created_at
		FROM bills
		WHERE bill_no = $1
	`

	var row billRow
	err := sqlx.GetContext(ctx, r.db, &row, query, billNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storeError("failed to get bill", err)
	}

	if err := json.Unmarshal(row.ItemsJSON, &row.Bill.Items); err != nil {
		return nil, fmt.Errorf("failed to decode bill items: %w", err)
	}
	return &row.Bill, nil
}

// MaxBillNo is the seed for the bill number sequence.
func (r *billRepository) MaxBillNo(ctx context.Context) (int64, error) {
	return maxNumber(ctx, r.db, `SELECT COALESCE(MAX(bill_no), 0) FROM bills`)
}

type purchaseRepository struct {
	db *DB
}

func NewPurchaseRepository(db *DB) *purchaseRepository {
	return &purchaseRepository{db: db}
}

type purchaseRow struct {
	domain.Purchase
	ItemsJSON []byte `db:"items"`
}

func (r *purchaseRepository) CreatePurchase(ctx context.Context, purchase *domain.Purchase, adjustments []domain.StockAdjustment) error {
	items, err := json.Marshal(purchase.Items)
	if err != nil {
		return fmt.Errorf("failed to encode purchase items: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO purchases (id, grn_no, supplier_name, supplier_invoice, total, items, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			purchase.ID,
			purchase.GRNNo,
			purchase.SupplierName,
			purchase.SupplierInvoice,
			purchase.Total,
			items,
			purchase.ReceivedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("purchase %d already exists: %w", purchase.GRNNo, domain.ErrInvalidInput)
			}
			return fmt.Errorf("failed to insert purchase: %w", err)
		}

		return applyAdjustments(ctx, tx, adjustments)
	})
}

func (r *purchaseRepository) GetPurchaseByNumber(ctx context.Context, grnNo int64) (*domain.Purchase, error) {
	query := `
		SELECT id, grn_no, supplier_name, supplier_invoice, total, items, received_at
		FROM purchases
		WHERE grn_no = $1
	`

	var row purchaseRow
	err := sqlx.GetContext(ctx, r.db, &row, query, grnNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storeError("failed to get purchase", err)
	}

	if err := json.Unmarshal(row.ItemsJSON, &row.Purchase.Items); err != nil {
		return nil, fmt.Errorf("failed to decode purchase items: %w", err)
	}
	return &row.Purchase, nil
}

// MaxGRNNo is the seed for the goods received note sequence.
func (r *purchaseRepository) MaxGRNNo(ctx context.Context) (int64, error) {
	return maxNumber(ctx, r.db, `SELECT COALESCE(MAX(grn_no), 0) FROM purchases`)
}

func maxNumber(ctx context.Context, q sqlx.QueryerContext, query string) (int64, error) {
	var max sql.NullInt64
	if err := sqlx.GetContext(ctx, q, &max, query); err != nil {
		return 0, storeError("failed to read max number", err)
	}
	if !max.Valid || max.Int64 < 0 {
		return 0, nil
	}
	return max.Int64, nil
}
