package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/features"
)

// Snapshot file names inside a CSV directory.
const (
	FileCategories  = "dim_category.csv"
	FileRestaurants = "dim_restaurant.csv"
	FileCustomers   = "dim_customer.csv"
	FileMenuItems   = "dim_menu_item.csv"
	FileCalendar    = "dim_time.csv"
	FileSales       = "fact_sales.csv"
)

// CSVSource reads the same joined shape from a directory of snapshots.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a new CSVSource
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

// FetchTrainingFrame joins fact_sales with the dimension snapshots.
// Dimension files other than the menu are optional.
func (s *CSVSource) FetchTrainingFrame(ctx context.Context) (*features.Frame, error) {
	sales, err := readTable(filepath.Join(s.Dir, FileSales))
	if err != nil {
		return nil, err
	}
	menu, err := readTable(filepath.Join(s.Dir, FileMenuItems))
	if err != nil {
		return nil, err
	}
	restaurants, err := readOptionalTable(filepath.Join(s.Dir, FileRestaurants))
	if err != nil {
		return nil, err
	}
	customers, err := readOptionalTable(filepath.Join(s.Dir, FileCustomers))
	if err != nil {
		return nil, err
	}
	categories, err := readOptionalTable(filepath.Join(s.Dir, FileCategories))
	if err != nil {
		return nil, err
	}

	menuByID := menu.index("product_id")
	restByID := restaurants.index("restaurant_id")
	custByID := customers.index("customer_id")
	catByID := categories.index("category_id")

	f := newTrainingFrame()
	for i, sale := range sales.rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		item := menu.lookup(menuByID, sales.get(sale, "product_id"))
		rest := restaurants.lookup(restByID, sales.get(sale, "restaurant_id"))
		cust := customers.lookup(custByID, sales.get(sale, "customer_id"))
		categoryID := features.NormalizeLevel(menu.get(item, "category_id"))
		cat := categories.lookup(catByID, categoryID)

		err := f.AppendRow(
			sales.get(sale, "price_sold"), sales.get(sale, "product_id"), sales.get(sale, "restaurant_id"),
			sales.get(sale, "customer_id"), sales.get(sale, "date"), sales.get(sale, "units_sold"), sales.get(sale, "revenue"),
			menu.get(item, "product_name"), categoryID, categories.get(cat, "category_name"),
			menu.get(item, "base_price"), menu.get(item, "cost"), menu.get(item, "portion_size"),
			restaurants.get(rest, "location"), restaurants.get(rest, "type"),
			customers.get(cust, "age_group"), customers.get(cust, "gender"),
		)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FetchProducts reads dim_menu_item.csv.
func (s *CSVSource) FetchProducts(context.Context) ([]catalog.Product, error) {
	menu, err := readTable(filepath.Join(s.Dir, FileMenuItems))
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(menu.rows))
	for _, row := range menu.rows {
		id, _ := strconv.Atoi(features.NormalizeLevel(menu.get(row, "product_id")))
		out = append(out, catalog.Product{
			ProductID:   id,
			Name:        menu.get(row, "product_name"),
			CategoryID:  features.NormalizeLevel(menu.get(row, "category_id")),
			BasePrice:   parseFloat(menu.get(row, "base_price")),
			Cost:        parseFloat(menu.get(row, "cost")),
			PortionSize: menu.get(row, "portion_size"),
		})
	}
	return out, nil
}

// CountSales counts data rows in fact_sales.csv.
func (s *CSVSource) CountSales(context.Context) (int64, error) {
	sales, err := readTable(filepath.Join(s.Dir, FileSales))
	if err != nil {
		return 0, err
	}
	return int64(len(sales.rows)), nil
}

// table is a parsed CSV file addressed by header name.
type table struct {
	header map[string]int
	rows   [][]string
}

func readTable(path string) (*table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	head, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t := &table{header: make(map[string]int, len(head))}
	for i, h := range head {
		t.header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// readOptionalTable returns an empty table when the file does not exist.
func readOptionalTable(path string) (*table, error) {
	t, err := readTable(path)
	if errors.Is(err, os.ErrNotExist) {
		return &table{header: map[string]int{}}, nil
	}
	return t, err
}

// get returns the trimmed cell, "" for a nil row or unknown column.
func (t *table) get(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || row == nil || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// index maps a key column to the first row holding each key.
func (t *table) index(col string) map[string]int {
	idx := make(map[string]int, len(t.rows))
	for i, row := range t.rows {
		k := features.NormalizeLevel(t.get(row, col))
		if _, seen := idx[k]; !seen && k != "" {
			idx[k] = i
		}
	}
	return idx
}

func (t *table) lookup(idx map[string]int, key string) []string {
	i, ok := idx[features.NormalizeLevel(key)]
	if !ok {
		return nil
	}
	return t.rows[i]
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
