package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/advisor"
	"github.com/andresuchdata/retailbill/backend-go/internal/cache"
	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/memory"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type unavailableCounters struct{}

func (unavailableCounters) GetCounter(context.Context, string) (*domain.Counter, error) {
	return nil, domain.ErrStoreUnavailable
}

func (unavailableCounters) SetCounter(context.Context, string, int64) error {
	return domain.ErrStoreUnavailable
}

func (unavailableCounters) SeedCounter(context.Context, string, int64) (int64, error) {
	return 0, domain.ErrStoreUnavailable
}

func (unavailableCounters) RunTransaction(context.Context, func(context.Context, sequence.Tx) error) error {
	return domain.ErrStoreUnavailable
}

func newTestRouter(t *testing.T, counters sequence.Store) (*gin.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	_, err := store.UpsertProducts(context.Background(), []domain.Product{
		{ID: "p1", ProductName: "Basmati Rice", CurrentStock: 3, PurchaseRate: 40, SaleRate: 55},
		{ID: "p2", ProductName: "Sugar", CurrentStock: 80, PurchaseRate: 2, SaleRate: 3},
	})
	require.NoError(t, err)
	if counters == nil {
		counters = store
	}

	stock := service.NewStockAdvisoryService(store, advisor.NewEngine(), cache.NewMemoryAlertCache(time.Minute))
	services := &Services{
		Billing:  service.NewBillingService(sequence.NewAllocator(counters), store, store, stock),
		Products: service.NewProductService(store, stock),
		Stock:    stock,
	}
	return NewRouter(services, []string{"http://localhost:5173"}), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBills_PreviewThenCreate(t *testing.T) {
	router, store := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/bills/next-bill-number", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nextBillNo": 1}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bills/create", map[string]any{
		"previewBillNo": 1,
		"customerName":  "Walk-in",
		"items": []map[string]any{
			{"productId": "p1", "productName": "Basmati Rice", "quantity": 2, "rate": "55.00"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Bill          domain.Bill `json:"bill"`
		NumberChanged bool        `json:"numberChanged"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.Bill.BillNo)
	assert.False(t, created.NumberChanged)
	assert.Equal(t, "110.00", created.Bill.Total.StringFixed(2))

	p, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.CurrentStock)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills/next-bill-number", nil)
	assert.JSONEq(t, `{"nextBillNo": 2}`, rec.Body.String())
}

func TestBills_CreateRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/bills/create", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bills/create", map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 0, "rate": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBills_ReservationFailureReturns503(t *testing.T) {
	router, store := newTestRouter(t, unavailableCounters{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/bills/create", map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 1, "rate": 55}},
	})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "could not generate bill number, try again"}`, rec.Body.String())
	p, _ := store.GetProduct(context.Background(), "p1")
	assert.Equal(t, 3.0, p.CurrentStock)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/purchases/next-grn-number", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "could not generate GRN number, try again"}`, rec.Body.String())
}

// billsDown reserves numbers normally but cannot save bills.
type billsDown struct{ *memory.Store }

func (billsDown) CreateBill(context.Context, *domain.Bill, []domain.StockAdjustment) error {
	return domain.ErrStoreUnavailable
}

func TestBills_SaveFailureAfterReservationReturnsGeneric503(t *testing.T) {
	store := memory.New()
	_, err := store.UpsertProducts(context.Background(), []domain.Product{{ID: "p1", ProductName: "Basmati Rice", CurrentStock: 3}})
	require.NoError(t, err)

	services := &Services{
		Billing: service.NewBillingService(sequence.NewAllocator(store), billsDown{store}, store, nil),
	}
	router := NewRouter(services, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/bills/create", map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 1, "rate": 55}},
	})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "service temporarily unavailable, try again"}`, rec.Body.String())

	// the number was consumed, so the next preview moves past it
	rec = doJSON(t, router, http.MethodGet, "/api/v1/bills/next-bill-number", nil)
	assert.JSONEq(t, `{"nextBillNo": 2}`, rec.Body.String())
}

func TestPurchases_Create(t *testing.T) {
	router, store := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/purchases/next-grn-number", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nextGrnNo": 1}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/purchases/create", map[string]any{
		"previewGrnNo": 1,
		"supplierName": "Acme Traders",
		"items":        []map[string]any{{"productName": "basmati rice", "quantity": 30, "rate": 42}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"grnNo":1`)

	p, _ := store.GetProduct(context.Background(), "p1")
	assert.Equal(t, 33.0, p.CurrentStock)
	assert.Equal(t, 42.0, p.PurchaseRate)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/purchases/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProducts(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/products", []map[string]any{
		{"id": "p3", "productName": "Cardamom", "currentStock": 0, "purchaseRate": 300},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"upserted": 1}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/p3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"productName":"Cardamom"`)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/products", []map[string]any{{"productName": "No ID"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_Import(t *testing.T) {
	router, store := newTestRouter(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "products.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("id,product_name,current_stock\np9,Cloves,4\n"))
	require.NoError(t, err)
	fw, err = mw.CreateFormFile("files", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("nothing"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"upserted": 1, "skipped": ["notes.txt"]}`, rec.Body.String())
	_, err = store.GetProduct(context.Background(), "p9")
	assert.NoError(t, err)
}

func TestStock_AlertsLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stock/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis domain.StockAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	require.Len(t, analysis.Alerts, 1)
	assert.Equal(t, "alert-p1", analysis.Alerts[0].ID)
	assert.Equal(t, domain.UrgencyHigh, analysis.Alerts[0].UrgencyLevel)
	assert.False(t, analysis.Alerts[0].Read)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/stock/alerts/alert-p1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/stock/alerts/alert-unknown/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/stock/alerts", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.True(t, analysis.Alerts[0].Read)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/stock/refresh", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.False(t, analysis.Alerts[0].Read)
}

func TestStock_BillInvalidatesAlerts(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stock/alerts", nil)
	assert.Contains(t, rec.Body.String(), `"urgencyLevel":"High"`)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/bills/create", map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 3, "rate": 55}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/stock/alerts", nil)
	assert.Contains(t, rec.Body.String(), `"urgencyLevel":"Critical"`)
}

func TestStock_ReportCSV(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stock/report.csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Basmati Rice")
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)
	assert.False(t, allowAll)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
