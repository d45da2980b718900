package advisor

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	analysis := NewEngine().Analyze([]domain.Product{
		{ID: "p1", ProductName: "Oil, 1L", CurrentStock: 2, PurchaseRate: 120},
		{ID: "p2", ProductName: "Salt", CurrentStock: 60, PurchaseRate: 20},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, analysis.Alerts))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, reportHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Critical", rows[1][1])
	assert.Equal(t, "Oil, 1L", rows[1][3])
	assert.Equal(t, "23", rows[1][5])
	assert.Equal(t, "2760.00", rows[1][6])
}
