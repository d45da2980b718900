package advisor

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
)

var reportHeader = []string{
	"Priority", "Urgency", "Product ID", "Product Name", "Current Stock",
	"Recommended Qty", "Estimated Value", "Order By", "Expected Stockout", "Supplier Recommendation",
}

// WriteCSV writes a reorder report, one row per alert, in the given order.
func WriteCSV(w io.Writer, alerts []domain.Alert) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(reportHeader); err != nil {
		return err
	}

	for _, a := range alerts {
		orderBy := ""
		if a.OrderByDate != nil {
			orderBy = *a.OrderByDate
		}
		record := []string{
			strconv.Itoa(a.Priority),
			string(a.UrgencyLevel),
			a.ProductID,
			a.ProductName,
			formatQty(a.CurrentStock),
			strconv.Itoa(a.RecommendedOrderQty),
			fmt.Sprintf("%.2f", a.EstimatedOrderValue),
			orderBy,
			a.ExpectedStockoutDate,
			a.SupplierRecommendation,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
