package importer

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/memory"
	"github.com/andresuchdata/retailbill/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const productCSV = `Product ID,Product Name,Current Stock,Min Stock,Purchase Rate,Sale Rate
p1,Basmati Rice,12,5,40,55
,Cumin Seeds,"1,250",,12.5,18
p3,,7,,,
p1,Basmati Rice 5kg,20,5,41,56
`

func TestParseProducts_CSV(t *testing.T) {
	products, err := ParseProducts("products.csv", strings.NewReader(productCSV))
	require.NoError(t, err)
	require.Len(t, products, 2)

	// duplicate id keeps the last row
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "Basmati Rice 5kg", products[0].ProductName)
	assert.Equal(t, 20.0, products[0].CurrentStock)

	assert.Equal(t, ProductID("Cumin Seeds"), products[1].ID)
	assert.Equal(t, 1250.0, products[1].CurrentStock)
	assert.Equal(t, 12.5, products[1].PurchaseRate)
	assert.Zero(t, products[1].MinStock)
}

func TestParseProducts_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"SKU", "Name", "Stock", "Cost", "Price"},
		{"sku-1", "Sugar", 3, 2.5, 4},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	products, err := ParseProducts("Products.XLSX", buf)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, domain.Product{ID: "sku-1", ProductName: "Sugar", CurrentStock: 3, PurchaseRate: 2.5, SaleRate: 4}, products[0])
}

func TestParseProducts_Errors(t *testing.T) {
	_, err := ParseProducts("notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseProducts("bad.csv", strings.NewReader("sku,stock\n1,2\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ParseProducts("empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductID_IgnoresCaseAndSpacing(t *testing.T) {
	assert.Equal(t, ProductID("Cumin  Seeds"), ProductID(" cumin seeds"))
	assert.NotEqual(t, ProductID("Cumin"), ProductID("Cumin Seeds"))
}

func TestImporter_ImportDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(productCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("id,name,stock\np1,Basmati Rice,99\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("skip"), 0o644))

	store := memory.New()
	n, err := New(store).ImportDir(context.Background(), dir, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	p, err := store.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, p.CurrentStock, "later file wins")
}

// fakeObjects is an in-memory bucket.
type fakeObjects map[string][]byte

func (f fakeObjects) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range f {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (f fakeObjects) OpenObject(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f[key])), nil
}

func (f fakeObjects) DownloadObject(context.Context, string, string) error { return nil }

func (f fakeObjects) UploadObject(_ context.Context, key string, data []byte) error {
	f[key] = data
	return nil
}

func TestImporter_ImportFiles_FailsOnBadSheet(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("sku\n1\n"), 0o644))

	store := memory.New()
	_, err := New(store).ImportFiles(context.Background(), []string{bad, filepath.Join(dir, "missing.csv")}, 1)

	assert.Error(t, err)
	products, _ := store.ListProducts(context.Background())
	assert.Empty(t, products)
}

func TestImporter_ImportObjects(t *testing.T) {
	bucket := fakeObjects{
		"sheets/products.csv": []byte(productCSV),
		"sheets/photo.png":    []byte{0x89},
		"reports/old.csv":     []byte("product_name\nIgnored\n"),
	}
	store := memory.New()

	n, err := New(store).ImportObjects(context.Background(), bucket, "sheets/")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	products, _ := store.ListProducts(context.Background())
	assert.Len(t, products, 2)
}
