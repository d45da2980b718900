package service

import (
	"context"
	"math"
	"testing"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_UpsertProducts_Normalises(t *testing.T) {
	store := memory.New()
	inv := &countingInvalidator{}
	svc := NewProductService(store, inv)
	ctx := context.Background()

	n, err := svc.UpsertProducts(ctx, []domain.Product{
		{ID: " p1 ", ProductName: " Basmati Rice ", CurrentStock: math.NaN(), PurchaseRate: -4, SaleRate: 55},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, inv.calls)

	p, err := svc.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Basmati Rice", p.ProductName)
	assert.Zero(t, p.CurrentStock)
	assert.Zero(t, p.PurchaseRate)
	assert.Equal(t, 55.0, p.SaleRate)
}

func TestProductService_UpsertProducts_RequiresIDAndName(t *testing.T) {
	svc := NewProductService(memory.New(), nil)

	_, err := svc.UpsertProducts(context.Background(), []domain.Product{{ID: "p1"}})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductService_ListProducts_EmptyIsNotNil(t *testing.T) {
	svc := NewProductService(memory.New(), nil)

	products, err := svc.ListProducts(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductService_GetProduct(t *testing.T) {
	svc := NewProductService(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetProduct(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
