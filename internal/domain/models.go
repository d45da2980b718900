// backend-go/internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sequence names used by the number allocator.
const (
	SequenceBillNumber = "billNumber"
	SequenceGRNNumber  = "grnNumber"
)

// Counter is the persisted state of a named sequence: the last issued value.
type Counter struct {
	Name      string    `json:"name" db:"name"`
	Value     int64     `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Product is the master record the advisory engine and stock tracking read.
type Product struct {
	ID           string    `json:"id" db:"id"`
	ProductName  string    `json:"productName" db:"product_name"`
	CurrentStock float64   `json:"currentStock" db:"current_stock"`
	MinStock     float64   `json:"minStock" db:"min_stock"`
	PurchaseRate float64   `json:"purchaseRate" db:"purchase_rate"`
	SaleRate     float64   `json:"saleRate" db:"sale_rate"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// StockAdjustment moves on-hand stock of one product. ProductName is only used
// when no product matches ProductID.
type StockAdjustment struct {
	ProductID   string
	ProductName string
	Delta       float64
	// PurchaseRate, when positive, replaces the product's unit cost.
	PurchaseRate float64
}

// LineItem is one row of a bill or a purchase.
type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Bill is a sales invoice.
type Bill struct {
	ID           string          `json:"id" db:"id"`
	BillNo       int64           `json:"billNo" db:"bill_no"`
	CustomerName string          `json:"customerName" db:"customer_name"`
	Items        []LineItem      `json:"items" db:"-"`
	Discount     decimal.Decimal `json:"discount" db:"discount"`
	Total        decimal.Decimal `json:"total" db:"total"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// Purchase is a goods received note.
type Purchase struct {
	ID              string          `json:"id" db:"id"`
	GRNNo           int64           `json:"grnNo" db:"grn_no"`
	SupplierName    string          `json:"supplierName" db:"supplier_name"`
	SupplierInvoice string          `json:"supplierInvoice" db:"supplier_invoice"`
	Items           []LineItem      `json:"items" db:"-"`
	Total           decimal.Decimal `json:"total" db:"total"`
	ReceivedAt      time.Time       `json:"receivedAt" db:"received_at"`
}
