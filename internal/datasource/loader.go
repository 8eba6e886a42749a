/**
 * @description
 * Loader seeds the relational store from a CSV snapshot directory.
 *
 * @notes
 * - Every insert uses ON CONFLICT DO NOTHING, so reloading the same snapshot
 *   is a no-op.
 * - Deadlocks and serialization failures are retried with jittered backoff.
 */

package datasource

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	pgxconn "github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/models"
)

const loadBatchSize = 500

// LoadReport counts rows per table.
type LoadReport struct {
	Table    string `json:"table"`
	Read     int    `json:"read"`
	Skipped  int    `json:"skipped"`
	Inserted int64  `json:"inserted"`
}

// Loader bulk-inserts CSV snapshots.
type Loader struct {
	DB  *gorm.DB
	Dir string
}

// NewLoader creates a new Loader
func NewLoader(db *gorm.DB, dir string) *Loader {
	return &Loader{DB: db, Dir: dir}
}

// LoadAll loads every snapshot present, dimensions before facts.
// Missing files are skipped; fact_sales is required.
func (l *Loader) LoadAll(ctx context.Context) ([]LoadReport, error) {
	steps := []struct {
		file     string
		required bool
		load     func(context.Context, *table) (LoadReport, error)
	}{
		{FileCategories, false, l.loadCategories},
		{FileRestaurants, false, l.loadRestaurants},
		{FileCustomers, false, l.loadCustomers},
		{FileMenuItems, true, l.loadMenuItems},
		{FileCalendar, false, l.loadCalendar},
		{FileSales, true, l.loadSales},
	}

	var reports []LoadReport
	for _, step := range steps {
		t, err := readTable(filepath.Join(l.Dir, step.file))
		if errors.Is(err, os.ErrNotExist) && !step.required {
			logger.Warn("Loader: %s not found, skipping", step.file)
			continue
		}
		if err != nil {
			return reports, err
		}
		rep, err := step.load(ctx, t)
		if err != nil {
			return reports, fmt.Errorf("load %s: %w", step.file, err)
		}
		logger.Info("✅ %s loaded: read=%d skipped=%d inserted=%d", rep.Table, rep.Read, rep.Skipped, rep.Inserted)
		reports = append(reports, rep)
	}
	return reports, nil
}

func (l *Loader) loadCategories(ctx context.Context, t *table) (LoadReport, error) {
	rep := LoadReport{Table: models.Category{}.TableName(), Read: len(t.rows)}
	var rows []models.Category
	for _, r := range t.rows {
		id, err := parseInt(t.get(r, "category_id"))
		if err != nil {
			rep.Skipped++
			continue
		}
		rows = append(rows, models.Category{CategoryID: id, CategoryName: t.get(r, "category_name")})
	}
	n, err := insertIgnore(ctx, l.DB, rows)
	rep.Inserted = n
	return rep, err
}

func (l *Loader) loadRestaurants(ctx context.Context, t *table) (LoadReport, error) {
	rep := LoadReport{Table: models.Restaurant{}.TableName(), Read: len(t.rows)}
	var rows []models.Restaurant
	for _, r := range t.rows {
		id, err := parseInt(t.get(r, "restaurant_id"))
		if err != nil {
			rep.Skipped++
			continue
		}
		count, _ := parseInt(t.get(r, "avg_customer_count"))
		rows = append(rows, models.Restaurant{
			RestaurantID:     id,
			Name:             t.get(r, "name"),
			Location:         t.get(r, "location"),
			VenueType:        t.get(r, "type"),
			AvgCustomerCount: count,
			Rating:           parseDecimal(t.get(r, "rating")).Decimal,
			OwnerContact:     t.get(r, "owner_contact"),
		})
	}
	n, err := insertIgnore(ctx, l.DB, rows)
	rep.Inserted = n
	return rep, err
}

func (l *Loader) loadCustomers(ctx context.Context, t *table) (LoadReport, error) {
	rep := LoadReport{Table: models.Customer{}.TableName(), Read: len(t.rows)}
	var rows []models.Customer
	for _, r := range t.rows {
		id, err := parseInt(t.get(r, "customer_id"))
		if err != nil {
			rep.Skipped++
			continue
		}
		visits, _ := parseInt(t.get(r, "visit_frequency"))
		rows = append(rows, models.Customer{
			CustomerID:     id,
			Gender:         t.get(r, "gender"),
			AgeGroup:       t.get(r, "age_group"),
			AvgSpending:    parseDecimal(t.get(r, "avg_spending")).Decimal,
			VisitFrequency: visits,
		})
	}
	n, err := insertIgnore(ctx, l.DB, rows)
	rep.Inserted = n
	return rep, err
}

func (l *Loader) loadMenuItems(ctx context.Context, t *table) (LoadReport, error) {
	rep := LoadReport{Table: models.MenuItem{}.TableName(), Read: len(t.rows)}
	var rows []models.MenuItem
	for _, r := range t.rows {
		id, err := parseInt(t.get(r, "product_id"))
		if err != nil {
			rep.Skipped++
			continue
		}
		restaurantID, _ := parseInt(t.get(r, "restaurant_id"))
		categoryID, _ := parseInt(t.get(r, "category_id"))
		rows = append(rows, models.MenuItem{
			ProductID:    id,
			RestaurantID: restaurantID,
			ProductName:  t.get(r, "product_name"),
			CategoryID:   categoryID,
			BasePrice:    parseDecimal(t.get(r, "base_price")),
			Cost:         parseDecimal(t.get(r, "cost")),
			PortionSize:  t.get(r, "portion_size"),
			Available:    parseBool(t.get(r, "available")),
		})
	}
	n, err := insertIgnore(ctx, l.DB, rows)
	rep.Inserted = n
	return rep, err
}

func (l *Loader) loadCalendar(ctx context.Context, t *table) (LoadReport, error) {
	rep := LoadReport{Table: models.CalendarDay{}.TableName(), Read: len(t.rows)}
	var rows []models.CalendarDay
	for _, r := range t.rows {
		d, ok := features.ParseDate(t.get(r, "date"))
		if !ok {
			rep.Skipped++
			continue
		}
		season := t.get(r, "season")
		if season == "" {
			season = features.Season(d.Month())
		}
		rows = append(rows, models.CalendarDay{
			Date:      d,
			Year:      d.Year(),
			Month:     int(d.Month()),
			Day:       d.Day(),
			DayOfWeek: features.DayOfWeek(d),
			Season:    season,
		})
	}
	n, err := insertIgnore(ctx, l.DB, rows)
	rep.Inserted = n
	return rep, err
}

func (l *Loader) loadSales(ctx context.Context, t *table) (LoadReport, error) {
	rep := LoadReport{Table: models.Sale{}.TableName(), Read: len(t.rows)}
	var rows []models.Sale
	for _, r := range t.rows {
		id, err := strconv.ParseInt(features.NormalizeLevel(t.get(r, "sale_id")), 10, 64)
		d, ok := features.ParseDate(t.get(r, "date"))
		price := parseDecimal(t.get(r, "price_sold"))
		if err != nil || !ok || !price.Valid {
			rep.Skipped++
			continue
		}
		productID, _ := parseInt(t.get(r, "product_id"))
		restaurantID, _ := parseInt(t.get(r, "restaurant_id"))
		customerID, _ := parseInt(t.get(r, "customer_id"))
		units, _ := parseInt(t.get(r, "units_sold"))
		rows = append(rows, models.Sale{
			SaleID:       id,
			ProductID:    productID,
			RestaurantID: restaurantID,
			CustomerID:   customerID,
			Date:         d,
			UnitsSold:    units,
			PriceSold:    price.Decimal,
			Revenue:      parseDecimal(t.get(r, "revenue")).Decimal,
		})
	}
	n, err := insertIgnore(ctx, l.DB, rows)
	rep.Inserted = n
	return rep, err
}

// insertIgnore inserts rows in batches, skipping primary-key conflicts.
func insertIgnore[T any](ctx context.Context, db *gorm.DB, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	const maxRetries = 5
	var (
		res *gorm.DB
		err error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		res = db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, loadBatchSize)
		err = res.Error
		if err == nil || !retryable(err) {
			break
		}
		backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// retryable reports deadlocks (40P01) and serialization failures (40001).
func retryable(err error) bool {
	var code string
	var pgErr *pgconn.PgError
	var pgxErr *pgxconn.PgError
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pgxErr):
		code = pgxErr.Code
	}
	return code == "40P01" || code == "40001"
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(features.NormalizeLevel(s))
}

func parseDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
