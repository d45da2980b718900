// backend-go/internal/repository/repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
)

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpsertProducts(ctx context.Context, products []domain.Product) (int, error)
	AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment) error
}

// BillRepository persists sales invoices. CreateBill stores the bill and applies
// the stock adjustments atomically.
type BillRepository interface {
	CreateBill(ctx context.Context, bill *domain.Bill, adjustments []domain.StockAdjustment) error
	GetBillByNumber(ctx context.Context, billNo int64) (*domain.Bill, error)
	MaxBillNo(ctx context.Context) (int64, error)
}

// PurchaseRepository persists goods received notes. CreatePurchase stores the
// purchase and applies the stock adjustments atomically.
type PurchaseRepository interface {
	CreatePurchase(ctx context.Context, purchase *domain.Purchase, adjustments []domain.StockAdjustment) error
	GetPurchaseByNumber(ctx context.Context, grnNo int64) (*domain.Purchase, error)
	MaxGRNNo(ctx context.Context) (int64, error)
}
