// Package advisor classifies product stock into urgency tiers and builds
// reorder recommendations. It is the single home of the stock thresholds; every
// display surface calls into it instead of re-deriving cutoffs.
package advisor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
)

// reorderPolicy holds the target stock and minimum order for one urgency level.
type reorderPolicy struct {
	optimalStock  int
	orderFloor    int
	orderByOffset *int
}

func days(n int) *int { return &n }

var reorderPolicies = map[domain.UrgencyLevel]reorderPolicy{
	domain.UrgencyCritical: {optimalStock: 25, orderFloor: 20, orderByOffset: days(0)},
	domain.UrgencyHigh:     {optimalStock: 20, orderFloor: 15, orderByOffset: days(1)},
	domain.UrgencyMedium:   {optimalStock: 15, orderFloor: 10, orderByOffset: days(2)},
	domain.UrgencyWatch:    {optimalStock: 15, orderFloor: 5, orderByOffset: days(5)},
}

// defaultPolicy applies to any level without an explicit entry. It never sets an
// order-by date.
var defaultPolicy = reorderPolicy{optimalStock: 15, orderFloor: 5}

var supplierRecommendations = map[domain.UrgencyLevel]string{
	domain.UrgencyCritical: "Contact your primary supplier immediately and request express delivery.",
	domain.UrgencyHigh:     "Place an order with your regular supplier within 24 hours.",
	domain.UrgencyMedium:   "Add this item to the next scheduled purchase order.",
	domain.UrgencyWatch:    "Monitor sales and include in the weekly restock review.",
}

const noActionRequired = "No action required."

// SupplierRecommendation returns the guidance sentence for a level.
func SupplierRecommendation(level domain.UrgencyLevel) string {
	if s, ok := supplierRecommendations[level]; ok {
		return s
	}
	return noActionRequired
}

const dateLayout = "2006-01-02"

// Engine computes recommendations relative to its clock.
type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClassifyUrgency maps an on-hand quantity to an urgency tier. The first
// matching threshold wins.
func ClassifyUrgency(currentStock float64, productName string) domain.Urgency {
	stock := domain.SafeNumber(currentStock)

	switch {
	case stock == 0:
		return domain.Urgency{
			Level:        domain.UrgencyCritical,
			Message:      fmt.Sprintf("CRITICAL: %s is out of stock (0 units)", productName),
			Priority:     domain.UrgencyCritical.Priority(),
			DaysEstimate: days(0),
		}
	case stock <= 2:
		return domain.Urgency{
			Level:        domain.UrgencyCritical,
			Message:      fmt.Sprintf("CRITICAL: only %s units of %s left", formatQty(stock), productName),
			Priority:     domain.UrgencyCritical.Priority(),
			DaysEstimate: days(int(math.Max(1, math.Ceil(stock/2)))),
		}
	case stock < 5:
		return domain.Urgency{
			Level:        domain.UrgencyHigh,
			Message:      fmt.Sprintf("HIGH: %s is running low (%s units left)", productName, formatQty(stock)),
			Priority:     domain.UrgencyHigh.Priority(),
			DaysEstimate: days(int(math.Ceil(stock / 2))),
		}
	case stock <= 10:
		return domain.Urgency{
			Level:        domain.UrgencyMedium,
			Message:      fmt.Sprintf("MEDIUM: %s should be restocked soon (%s units left)", productName, formatQty(stock)),
			Priority:     domain.UrgencyMedium.Priority(),
			DaysEstimate: days(int(math.Ceil(stock / 3))),
		}
	case stock <= 20:
		return domain.Urgency{
			Level:        domain.UrgencyWatch,
			Message:      fmt.Sprintf("WATCH: keep an eye on %s (%s units left)", productName, formatQty(stock)),
			Priority:     domain.UrgencyWatch.Priority(),
			DaysEstimate: days(int(math.Ceil(stock / 4))),
		}
	default:
		return domain.Urgency{
			Level:    domain.UrgencyGood,
			Message:  fmt.Sprintf("GOOD: %s is well stocked (%s units)", productName, formatQty(stock)),
			Priority: domain.UrgencyGood.Priority(),
		}
	}
}

// Recommend builds the reorder advice for a product. Callers only invoke it for
// levels that need a reorder; a Good level still gets a well-formed result with
// no order-by date.
func (e *Engine) Recommend(product domain.Product, urgency domain.Urgency) domain.Recommendation {
	stock := domain.SafeNumber(product.CurrentStock)
	rate := domain.SafeNumber(product.PurchaseRate)
	today := truncateToDay(e.now())

	policy, ok := reorderPolicies[urgency.Level]
	if !ok {
		policy = defaultPolicy
	}

	// 1. Quantity to bring stock back to the optimal level, never below the floor
	qty := int(math.Ceil(math.Max(float64(policy.optimalStock)-stock, float64(policy.orderFloor))))

	// 2. Order-by date
	var orderBy *string
	if policy.orderByOffset != nil {
		d := addDays(today, *policy.orderByOffset).Format(dateLayout)
		orderBy = &d
	}

	// 3. Stockout projection, daily usage bounded to [1, 3] units
	dailyUsage := math.Max(1, math.Min(stock/7, 3))
	stockoutDays := int(math.Ceil(stock / dailyUsage))

	return domain.Recommendation{
		ProductID:              product.ID,
		ProductName:            product.ProductName,
		CurrentStock:           stock,
		MinStock:               domain.SafeNumber(product.MinStock),
		RecommendedOrderQty:    qty,
		EstimatedOrderValue:    float64(qty) * rate,
		OptimalStockLevel:      policy.optimalStock,
		OrderByDate:            orderBy,
		ExpectedStockoutDate:   addDays(today, stockoutDays).Format(dateLayout),
		ExpectedStockoutDays:   stockoutDays,
		Priority:               urgency.Priority,
		UrgencyLevel:           urgency.Level,
		Reason:                 urgency.Message,
		SupplierRecommendation: SupplierRecommendation(urgency.Level),
	}
}

// AlertID is derived from the product id, so the same product always gets the
// same id. Read flags are kept only as long as the cached analysis; a refresh,
// a stock change or cache expiry rebuilds the alerts unread.
func AlertID(productID string) string {
	return "alert-" + productID
}

// Analyze classifies every product and returns alerts sorted by priority plus
// summary totals. It never fails; an empty input yields a zero summary.
func (e *Engine) Analyze(products []domain.Product) domain.StockAnalysis {
	now := e.now()
	analysis := domain.StockAnalysis{
		Alerts: make([]domain.Alert, 0),
		Summary: domain.StockSummary{
			TotalProducts: len(products),
			LastUpdated:   now,
		},
	}

	for _, p := range products {
		stock := domain.SafeNumber(p.CurrentStock)
		analysis.Summary.TotalStockValue += stock * domain.SafeNumber(p.PurchaseRate)

		urgency := ClassifyUrgency(stock, p.ProductName)
		switch urgency.Level {
		case domain.UrgencyCritical:
			analysis.Summary.CriticalItems++
		case domain.UrgencyHigh, domain.UrgencyMedium:
			analysis.Summary.LowStockItems++
		}

		if !urgency.Level.NeedsReorder() {
			continue
		}

		analysis.Alerts = append(analysis.Alerts, domain.Alert{
			Recommendation: e.Recommend(p, urgency),
			ID:             AlertID(p.ID),
			Timestamp:      now,
		})
	}

	sort.SliceStable(analysis.Alerts, func(i, j int) bool {
		return analysis.Alerts[i].Priority < analysis.Alerts[j].Priority
	})
	analysis.Summary.AlertsGenerated = len(analysis.Alerts)

	return analysis
}

// Degraded is the renderable result returned when products could not be loaded.
func Degraded(now time.Time, err error) domain.StockAnalysis {
	msg := "stock analysis unavailable"
	if err != nil {
		msg = err.Error()
	}
	return domain.StockAnalysis{
		Alerts: make([]domain.Alert, 0),
		Summary: domain.StockSummary{
			LastUpdated: now,
			Error:       msg,
		},
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addDays adds calendar days; time.Date normalises month and year overflow.
func addDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}

func formatQty(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
