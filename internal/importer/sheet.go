// Package importer reads product master sheets exported from spreadsheets.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported sheet format")

// productNamespace derives stable ids for rows that carry no id column.
var productNamespace = uuid.MustParse("6f1c2a57-3c41-4e0b-9a8e-52d7c0b8a1f4")

// columnAliases lists accepted header spellings after normalizeHeader.
var columnAliases = map[string][]string{
	"id":            {"id", "product_id", "productid", "sku", "code", "item_code"},
	"product_name":  {"product_name", "productname", "name", "product", "item_name", "nama"},
	"current_stock": {"current_stock", "currentstock", "stock", "qty", "quantity", "on_hand"},
	"min_stock":     {"min_stock", "minstock", "minimum_stock", "reorder_level"},
	"purchase_rate": {"purchase_rate", "purchaserate", "cost", "hpp", "purchase_price"},
	"sale_rate":     {"sale_rate", "salerate", "price", "mrp", "harga", "sale_price"},
}

// IsSheet reports whether the file name has a supported extension.
func IsSheet(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ParseProducts reads a CSV or the first sheet of an XLSX file.
func ParseProducts(filename string, r io.Reader) ([]domain.Product, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	products, err := productsFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return products, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	return h
}

func productsFromRecords(records [][]string) ([]domain.Product, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet is empty: %w", domain.ErrInvalidInput)
	}

	colMap := make(map[string]int)
	for i, col := range records[0] {
		colMap[normalizeHeader(col)] = i
	}

	index := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := colMap[alias]; ok {
				index[field] = i
				break
			}
		}
	}
	if _, ok := index["product_name"]; !ok {
		return nil, fmt.Errorf("missing required column product_name: %w", domain.ErrInvalidInput)
	}

	products := make([]domain.Product, 0, len(records)-1)
	seen := make(map[string]int)
	for _, record := range records[1:] {
		getValue := func(field string) string {
			if idx, ok := index[field]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		name := getValue("product_name")
		if name == "" {
			continue
		}
		id := getValue("id")
		if id == "" {
			id = ProductID(name)
		}

		p := domain.Product{
			ID:           id,
			ProductName:  name,
			CurrentStock: domain.SafeNumber(getValue("current_stock")),
			MinStock:     domain.SafeNumber(getValue("min_stock")),
			PurchaseRate: domain.SafeNumber(getValue("purchase_rate")),
			SaleRate:     domain.SafeNumber(getValue("sale_rate")),
		}

		// later rows win
		if i, dup := seen[id]; dup {
			products[i] = p
			continue
		}
		seen[id] = len(products)
		products = append(products, p)
	}
	return products, nil
}

// ProductID is the id assigned to a product row without one.
func ProductID(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	return uuid.NewSHA1(productNamespace, []byte(key)).String()
}
