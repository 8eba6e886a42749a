/**
 * @description
 * Data sources for training rows and menu metadata. The relational store and
 * the CSV snapshot directory expose the same joined shape, so the feature
 * pipeline never branches on storage medium.
 *
 * @notes
 * - Joins are left joins; the Feature Builder drops rows missing a required
 *   dimension, which reproduces the inner join of the pricing profile.
 */

package datasource

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/training"
)

// TrainingColumns is the column order of every frame a source returns.
var TrainingColumns = []string{
	"price_sold", "product_id", "restaurant_id", "customer_id", "date", "units_sold", "revenue",
	"product_name", "category_id", "category_name", "base_price", "cost", "portion_size",
	"location", "type", "age_group", "gender",
}

// Source is everything the commands need from storage.
type Source interface {
	training.Source
	FetchProducts(ctx context.Context) ([]catalog.Product, error)
	CountSales(ctx context.Context) (int64, error)
}

// Open returns the source selected by configuration. db may be nil for CSV.
func Open(cfg *config.Config, db *gorm.DB) (Source, error) {
	switch cfg.Data.Source {
	case config.DataSourceCSV:
		return NewCSVSource(cfg.Data.Dir), nil
	case config.DataSourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("data source %q needs a database connection", cfg.Data.Source)
		}
		return NewGormSource(db), nil
	}
	return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
}

// LoadCatalog fetches products and builds the Reference Catalog.
func LoadCatalog(ctx context.Context, src Source) (*catalog.Catalog, error) {
	products, err := src.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	cat := catalog.Build(products)
	if names := cat.AmbiguousNames(); len(names) > 0 {
		logger.Warn("Catalog: %d product names map to several products; first by name order wins: %v", len(names), names)
	}
	return cat, nil
}

// WaitForData polls until the sales table holds at least minRows rows.
// Counting errors are logged and retried until the timeout expires.
func WaitForData(ctx context.Context, src Source, minRows int64, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := src.CountSales(ctx)
		switch {
		case err != nil:
			logger.Warn("WaitForData: counting sales failed: %v", err)
		case n >= minRows:
			logger.Info("WaitForData: found %d sales rows", n)
			return nil
		default:
			logger.Info("WaitForData: %d sales rows, waiting for >= %d", n, minRows)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out after %s waiting for %d sales rows", timeout, minRows)
		case <-ticker.C:
		}
	}
}

func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.Format("2006-01-02")
}

// decimalFloat converts a nullable decimal, NaN when NULL.
func decimalFloat(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return math.NaN()
	}
	return d.Decimal.InexactFloat64()
}

// newTrainingFrame is shared by both sources.
func newTrainingFrame() *features.Frame {
	return features.NewFrame(TrainingColumns...)
}
