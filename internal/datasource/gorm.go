package datasource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/models"
)

const trainingQuery = `
SELECT
	fs.price_sold, fs.product_id, fs.restaurant_id, fs.customer_id, fs.date, fs.units_sold, fs.revenue,
	mi.product_name, mi.category_id, cat.category_name, mi.base_price, mi.cost, mi.portion_size,
	r.location, r.type AS venue_type, c.age_group, c.gender
FROM fact_sales fs
LEFT JOIN dim_menu_item mi ON fs.product_id = mi.product_id
LEFT JOIN dim_restaurant r ON fs.restaurant_id = r.restaurant_id
LEFT JOIN dim_customer c   ON fs.customer_id = c.customer_id
LEFT JOIN dim_category cat ON mi.category_id = cat.category_id
ORDER BY fs.sale_id`

// joinedRow receives one row of trainingQuery; every column may be NULL.
type joinedRow struct {
	PriceSold    decimal.NullDecimal
	ProductID    *int
	RestaurantID *int
	CustomerID   *int
	Date         *time.Time
	UnitsSold    *int
	Revenue      decimal.NullDecimal
	ProductName  *string
	CategoryID   *int
	CategoryName *string
	BasePrice    decimal.NullDecimal
	Cost         decimal.NullDecimal
	PortionSize  *string
	Location     *string
	VenueType    *string
	AgeGroup     *string
	Gender       *string
}

// GormSource reads the star schema through GORM.
type GormSource struct {
	DB *gorm.DB
}

// NewGormSource creates a new GormSource
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{DB: db}
}

// FetchTrainingFrame runs the joined sales query.
func (s *GormSource) FetchTrainingFrame(ctx context.Context) (*features.Frame, error) {
	var rows []joinedRow
	if err := s.DB.WithContext(ctx).Raw(trainingQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query training rows: %w", err)
	}

	f := newTrainingFrame()
	for _, r := range rows {
		err := f.AppendRow(
			formatDecimal(r.PriceSold), formatInt(r.ProductID), formatInt(r.RestaurantID), formatInt(r.CustomerID),
			formatDate(r.Date), formatInt(r.UnitsSold), formatDecimal(r.Revenue),
			formatString(r.ProductName), formatInt(r.CategoryID), formatString(r.CategoryName),
			formatDecimal(r.BasePrice), formatDecimal(r.Cost), formatString(r.PortionSize),
			formatString(r.Location), formatString(r.VenueType), formatString(r.AgeGroup), formatString(r.Gender),
		)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FetchProducts reads the menu item dimension.
func (s *GormSource) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	var items []models.MenuItem
	if err := s.DB.WithContext(ctx).Order("product_id").Find(&items).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Product, len(items))
	for i, it := range items {
		out[i] = productFromModel(it)
	}
	return out, nil
}

// CountSales counts fact rows.
func (s *GormSource) CountSales(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Sale{}).Count(&n).Error
	return n, err
}

func productFromModel(it models.MenuItem) catalog.Product {
	return catalog.Product{
		ProductID:   it.ProductID,
		Name:        it.ProductName,
		CategoryID:  strconv.Itoa(it.CategoryID),
		BasePrice:   decimalFloat(it.BasePrice),
		Cost:        decimalFloat(it.Cost),
		PortionSize: it.PortionSize,
	}
}
