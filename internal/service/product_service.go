package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

type ProductService struct {
	repo  repository.ProductRepository
	stock StockInvalidator
}

func NewProductService(repo repository.ProductRepository, stock StockInvalidator) *ProductService {
	return &ProductService{repo: repo, stock: stock}
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = make([]domain.Product, 0)
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("product id is required: %w", domain.ErrInvalidInput)
	}
	return s.repo.GetProduct(ctx, id)
}

// UpsertProducts normalises names and numeric fields before saving.
func (s *ProductService) UpsertProducts(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	cleaned := make([]domain.Product, 0, len(products))
	for _, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		p.ProductName = strings.TrimSpace(p.ProductName)
		if p.ID == "" || p.ProductName == "" {
			return 0, fmt.Errorf("product id and name are required: %w", domain.ErrInvalidInput)
		}
		p.CurrentStock = domain.SafeNumber(p.CurrentStock)
		p.MinStock = domain.SafeNumber(p.MinStock)
		p.PurchaseRate = domain.SafeNumber(p.PurchaseRate)
		p.SaleRate = domain.SafeNumber(p.SaleRate)
		cleaned = append(cleaned, p)
	}

	n, err := s.repo.UpsertProducts(ctx, cleaned)
	if err != nil {
		return 0, err
	}

	if s.stock != nil {
		if err := s.stock.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("stock alerts: invalidate failed")
		}
	}
	return n, nil
}
