package domain

import "time"

// Urgency is the derived classification of one product's stock level.
type Urgency struct {
	Level        UrgencyLevel `json:"level"`
	Message      string       `json:"message"`
	Priority     int          `json:"priority"`
	DaysEstimate *int         `json:"daysEstimate"`
}

// Recommendation is the reorder advice for a product that is not healthy.
type Recommendation struct {
	ProductID              string       `json:"productId"`
	ProductName            string       `json:"productName"`
	CurrentStock           float64      `json:"currentStock"`
	MinStock               float64      `json:"minStock"`
	RecommendedOrderQty    int          `json:"recommendedOrderQty"`
	EstimatedOrderValue    float64      `json:"estimatedOrderValue"`
	OptimalStockLevel      int          `json:"optimalStockLevel"`
	OrderByDate            *string      `json:"orderByDate"`
	ExpectedStockoutDate   string       `json:"expectedStockoutDate"`
	ExpectedStockoutDays   int          `json:"expectedStockoutDays"`
	Priority               int          `json:"priority"`
	UrgencyLevel           UrgencyLevel `json:"urgencyLevel"`
	Reason                 string       `json:"reason"`
	SupplierRecommendation string       `json:"supplierRecommendation"`
}

// Alert is a recommendation surfaced to operators.
type Alert struct {
	Recommendation
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// StockSummary aggregates one analysis run.
type StockSummary struct {
	TotalProducts   int       `json:"totalProducts"`
	CriticalItems   int       `json:"criticalItems"`
	LowStockItems   int       `json:"lowStockItems"`
	TotalStockValue float64   `json:"totalStockValue"`
	AlertsGenerated int       `json:"alertsGenerated"`
	LastUpdated     time.Time `json:"lastUpdated"`
	Error           string    `json:"error,omitempty"`
}

// StockAnalysis is what the dashboard renders.
type StockAnalysis struct {
	Alerts  []Alert      `json:"alerts"`
	Summary StockSummary `json:"summary"`
}

// FindAlert returns the alert with the given id, or nil.
func (a *StockAnalysis) FindAlert(id string) *Alert {
	for i := range a.Alerts {
		if a.Alerts[i].ID == id {
			return &a.Alerts[i]
		}
	}
	return nil
}
