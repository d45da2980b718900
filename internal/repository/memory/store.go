// Package memory is an in-process store used by tests and by STORE_DRIVER=memory.
// It implements the repository interfaces and the sequence.Store contract.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
)

type Store struct {
	// txMu serialises transactions; mu guards the maps.
	txMu sync.Mutex
	mu   sync.RWMutex

	counters  map[string]domain.Counter
	products  map[string]domain.Product
	bills     map[int64]domain.Bill
	purchases map[int64]domain.Purchase
}

func New() *Store {
	return &Store{
		counters:  make(map[string]domain.Counter),
		products:  make(map[string]domain.Product),
		bills:     make(map[int64]domain.Bill),
		purchases: make(map[int64]domain.Purchase),
	}
}

var (
	_ sequence.Store                = (*Store)(nil)
	_ repository.ProductRepository  = (*Store)(nil)
	_ repository.BillRepository     = (*Store)(nil)
	_ repository.PurchaseRepository = (*Store)(nil)
)

func (s *Store) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counters[name]
	if !ok {
		return nil, domain.ErrCounterNotFound
	}
	return &c, nil
}

func (s *Store) SetCounter(ctx context.Context, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name] = domain.Counter{Name: name, Value: value, UpdatedAt: time.Now()}
	return nil
}

func (s *Store) SeedCounter(ctx context.Context, name string, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.counters[name]; ok {
		return c.Value, nil
	}
	s.counters[name] = domain.Counter{Name: name, Value: value, UpdatedAt: time.Now()}
	return value, nil
}

// RunTransaction runs fn with exclusive access to counters. Writes are staged
// and only applied when fn returns nil.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx sequence.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{store: s, staged: make(map[string]int64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for name, value := range tx.staged {
		s.counters[name] = domain.Counter{Name: name, Value: value, UpdatedAt: now}
	}
	return nil
}

type memTx struct {
	store  *Store
	staged map[string]int64
}

func (t *memTx) GetCounter(ctx context.Context, name string) (*domain.Counter, error) {
	if v, ok := t.staged[name]; ok {
		return &domain.Counter{Name: name, Value: v}, nil
	}
	return t.store.GetCounter(ctx, name)
}

func (t *memTx) SetCounter(ctx context.Context, name string, value int64) error {
	t.staged[name] = value
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductName < products[j].ProductName
	})
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpsertProducts(ctx context.Context, products []domain.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, p := range products {
		if p.ID == "" {
			return 0, fmt.Errorf("product %q has no id: %w", p.ProductName, domain.ErrInvalidInput)
		}
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	return len(products), nil
}

func (s *Store) AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyAdjustmentsLocked(adjustments)
}

// applyAdjustmentsLocked validates every adjustment before mutating anything.
// Stock is clamped at zero when a sale exceeds what is on hand.
func (s *Store) applyAdjustmentsLocked(adjustments []domain.StockAdjustment) error {
	ids := make([]string, len(adjustments))
	for i, adj := range adjustments {
		id, ok := s.resolveProductLocked(adj)
		if !ok {
			return fmt.Errorf("product %q (%s): %w", adj.ProductName, adj.ProductID, domain.ErrNotFound)
		}
		ids[i] = id
	}

	now := time.Now()
	for i, adj := range adjustments {
		p := s.products[ids[i]]
		p.CurrentStock = math.Max(p.CurrentStock+adj.Delta, 0)
		if adj.PurchaseRate > 0 {
			p.PurchaseRate = adj.PurchaseRate
		}
		p.UpdatedAt = now
		s.products[ids[i]] = p
	}
	return nil
}

// resolveProductLocked matches by id and falls back to a case-insensitive name match.
func (s *Store) resolveProductLocked(adj domain.StockAdjustment) (string, bool) {
	if _, ok := s.products[adj.ProductID]; ok && adj.ProductID != "" {
		return adj.ProductID, true
	}
	if adj.ProductName == "" {
		return "", false
	}
	for id, p := range s.products {
		if strings.EqualFold(strings.TrimSpace(p.ProductName), strings.TrimSpace(adj.ProductName)) {
			return id, true
		}
	}
	return "", false
}

func (s *Store) CreateBill(ctx context.Context, bill *domain.Bill, adjustments []domain.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[bill.BillNo]; exists {
		return fmt.Errorf("bill %d already exists: %w", bill.BillNo, domain.ErrInvalidInput)
	}
	if err := s.applyAdjustmentsLocked(adjustments); err != nil {
		return err
	}
	s.bills[bill.BillNo] = *bill
	return nil
}

func (s *Store) GetBillByNumber(ctx context.Context, billNo int64) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[billNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (s *Store) MaxBillNo(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for no := range s.bills {
		if no > max {
			max = no
		}
	}
	return max, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase *domain.Purchase, adjustments []domain.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchases[purchase.GRNNo]; exists {
		return fmt.Errorf("purchase %d already exists: %w", purchase.GRNNo, domain.ErrInvalidInput)
	}
	if err := s.applyAdjustmentsLocked(adjustments); err != nil {
		return err
	}
	s.purchases[purchase.GRNNo] = *purchase
	return nil
}

func (s *Store) GetPurchaseByNumber(ctx context.Context, grnNo int64) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[grnNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) MaxGRNNo(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for no := range s.purchases {
		if no > max {
			max = no
		}
	}
	return max, nil
}
