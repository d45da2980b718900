package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// StockInvalidator is notified whenever stock levels change.
type StockInvalidator interface {
	Invalidate(ctx context.Context) error
}

type LineItemInput struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

type CreateBillInput struct {
	// PreviewBillNo is the number shown to the user before saving, if any.
	PreviewBillNo int64           `json:"previewBillNo"`
	CustomerName  string          `json:"customerName"`
	Items         []LineItemInput `json:"items" binding:"required,min=1,dive"`
	Discount      decimal.Decimal `json:"discount"`
}

type CreateBillResult struct {
	Bill          *domain.Bill `json:"bill"`
	NumberChanged bool         `json:"numberChanged"`
}

type CreatePurchaseInput struct {
	PreviewGRNNo    int64           `json:"previewGrnNo"`
	SupplierName    string          `json:"supplierName" binding:"required"`
	SupplierInvoice string          `json:"supplierInvoice"`
	Items           []LineItemInput `json:"items" binding:"required,min=1,dive"`
}

type CreatePurchaseResult struct {
	Purchase      *domain.Purchase `json:"purchase"`
	NumberChanged bool             `json:"numberChanged"`
}

// BillingService creates bills and purchases under numbers reserved from the
// allocator. A document is never saved without a reserved number.
type BillingService struct {
	allocator *sequence.Allocator
	bills     repository.BillRepository
	purchases repository.PurchaseRepository
	stock     StockInvalidator
	now       func() time.Time
}

func NewBillingService(
	allocator *sequence.Allocator,
	bills repository.BillRepository,
	purchases repository.PurchaseRepository,
	stock StockInvalidator,
) *BillingService {
	allocator.Register(domain.SequenceBillNumber, bills.MaxBillNo)
	allocator.Register(domain.SequenceGRNNumber, purchases.MaxGRNNo)

	return &BillingService{
		allocator: allocator,
		bills:     bills,
		purchases: purchases,
		stock:     stock,
		now:       time.Now,
	}
}

// NextBillNumber previews the next bill number. The value is advisory; the
// number actually saved comes from CreateBill.
func (s *BillingService) NextBillNumber(ctx context.Context) (int64, error) {
	return s.peek(ctx, domain.SequenceBillNumber)
}

func (s *BillingService) NextGRNNumber(ctx context.Context) (int64, error) {
	return s.peek(ctx, domain.SequenceGRNNumber)
}

func (s *BillingService) peek(ctx context.Context, sequenceName string) (int64, error) {
	n, err := s.allocator.PeekNext(ctx, sequenceName)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrNumberUnavailable, err)
	}
	return n, nil
}

func (s *BillingService) CreateBill(ctx context.Context, in CreateBillInput) (*CreateBillResult, error) {
	items, subtotal, err := buildLineItems(in.Items)
	if err != nil {
		return nil, err
	}
	if in.Discount.IsNegative() || in.Discount.GreaterThan(subtotal) {
		return nil, fmt.Errorf("discount %s outside 0..%s: %w", in.Discount, subtotal, domain.ErrInvalidInput)
	}

	billNo, err := s.reserve(ctx, domain.SequenceBillNumber)
	if err != nil {
		return nil, err
	}

	bill := &domain.Bill{
		ID:           uuid.NewString(),
		BillNo:       billNo,
		CustomerName: strings.TrimSpace(in.CustomerName),
		Items:        items,
		Discount:     in.Discount.Round(2),
		Total:        subtotal.Sub(in.Discount).Round(2),
		CreatedAt:    s.now(),
	}

	adjustments := make([]domain.StockAdjustment, 0, len(items))
	for _, item := range items {
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Delta:       -item.Quantity.InexactFloat64(),
		})
	}

	if err := s.bills.CreateBill(ctx, bill, adjustments); err != nil {
		log.Warn().Err(err).Int64("bill_no", billNo).Msg("bill not saved, reserved number left unused")
		return nil, fmt.Errorf("failed to save bill %d: %w", billNo, err)
	}

	s.invalidateStock(ctx)
	log.Info().Int64("bill_no", billNo).Str("total", bill.Total.StringFixed(2)).Msg("bill created")

	return &CreateBillResult{
		Bill:          bill,
		NumberChanged: in.PreviewBillNo > 0 && in.PreviewBillNo != billNo,
	}, nil
}

func (s *BillingService) GetBill(ctx context.Context, billNo int64) (*domain.Bill, error) {
	if billNo <= 0 {
		return nil, fmt.Errorf("bill number %d: %w", billNo, domain.ErrInvalidInput)
	}
	return s.bills.GetBillByNumber(ctx, billNo)
}

func (s *BillingService) CreatePurchase(ctx context.Context, in CreatePurchaseInput) (*CreatePurchaseResult, error) {
	if strings.TrimSpace(in.SupplierName) == "" {
		return nil, fmt.Errorf("supplier name is required: %w", domain.ErrInvalidInput)
	}
	items, total, err := buildLineItems(in.Items)
	if err != nil {
		return nil, err
	}

	grnNo, err := s.reserve(ctx, domain.SequenceGRNNumber)
	if err != nil {
		return nil, err
	}

	purchase := &domain.Purchase{
		ID:              uuid.NewString(),
		GRNNo:           grnNo,
		SupplierName:    strings.TrimSpace(in.SupplierName),
		SupplierInvoice: strings.TrimSpace(in.SupplierInvoice),
		Items:           items,
		Total:           total.Round(2),
		ReceivedAt:      s.now(),
	}

	adjustments := make([]domain.StockAdjustment, 0, len(items))
	for _, item := range items {
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Delta:        item.Quantity.InexactFloat64(),
			PurchaseRate: item.Rate.InexactFloat64(),
		})
	}

	if err := s.purchases.CreatePurchase(ctx, purchase, adjustments); err != nil {
		log.Warn().Err(err).Int64("grn_no", grnNo).Msg("purchase not saved, reserved number left unused")
		return nil, fmt.Errorf("failed to save purchase %d: %w", grnNo, err)
	}

	s.invalidateStock(ctx)
	log.Info().Int64("grn_no", grnNo).Str("total", purchase.Total.StringFixed(2)).Msg("purchase recorded")

	return &CreatePurchaseResult{
		Purchase:      purchase,
		NumberChanged: in.PreviewGRNNo > 0 && in.PreviewGRNNo != grnNo,
	}, nil
}

func (s *BillingService) GetPurchase(ctx context.Context, grnNo int64) (*domain.Purchase, error) {
	if grnNo <= 0 {
		return nil, fmt.Errorf("grn number %d: %w", grnNo, domain.ErrInvalidInput)
	}
	return s.purchases.GetPurchaseByNumber(ctx, grnNo)
}

// reserve turns any allocator failure into ErrNumberUnavailable while keeping
// the cause in the chain.
func (s *BillingService) reserve(ctx context.Context, sequenceName string) (int64, error) {
	n, err := s.allocator.ReserveNext(ctx, sequenceName)
	if err != nil {
		log.Error().Err(err).Str("sequence", sequenceName).Msg("number reservation failed")
		return 0, fmt.Errorf("%w: %w", domain.ErrNumberUnavailable, err)
	}
	return n, nil
}

func (s *BillingService) invalidateStock(ctx context.Context) {
	if s.stock == nil {
		return
	}
	if err := s.stock.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("stock alerts: invalidate failed")
	}
}

func buildLineItems(inputs []LineItemInput) ([]domain.LineItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, fmt.Errorf("at least one item is required: %w", domain.ErrInvalidInput)
	}

	items := make([]domain.LineItem, 0, len(inputs))
	total := decimal.Zero
	for i, in := range inputs {
		name := strings.TrimSpace(in.ProductName)
		if name == "" && in.ProductID == "" {
			return nil, decimal.Zero, fmt.Errorf("item %d has no product: %w", i+1, domain.ErrInvalidInput)
		}
		if !in.Quantity.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("item %d quantity must be positive: %w", i+1, domain.ErrInvalidInput)
		}
		if in.Rate.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("item %d rate must not be negative: %w", i+1, domain.ErrInvalidInput)
		}

		amount := in.Quantity.Mul(in.Rate).Round(2)
		items = append(items, domain.LineItem{
			ProductID:   in.ProductID,
			ProductName: name,
			Quantity:    in.Quantity,
			Rate:        in.Rate,
			Amount:      amount,
		})
		total = total.Add(amount)
	}
	return items, total, nil
}
