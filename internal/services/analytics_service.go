/**
 * @description
 * Analytics service: historical price snapshots and a horizon-based price
 * forecast heuristic for a menu item.
 *
 * @notes
 * - Historical figures come from fact_sales when the item sold in the
 *   location, else from menu list prices, else from fixed fallbacks.
 * - The forecast is a deterministic drift over the average list price,
 *   not a model prediction.
 */

package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/models"
)

const (
	DefaultAnalyticsItem     = "Cappuccino"
	DefaultAnalyticsLocation = "Kentron"
	DefaultForecastHorizon   = 30
	MaxForecastHorizon       = 365

	fallbackAvgPrice      = 1800.0
	fallbackMinPrice      = 1500.0
	fallbackMaxPrice      = 2200.0
	fallbackForecastPrice = 1900.0
	dailyDrift            = 0.0005
)

// Where a historical snapshot's figures came from.
const (
	SnapshotFromSales    = "sales"
	SnapshotFromMenu     = "menu"
	SnapshotFromFallback = "fallback"
)

type HistoricalSnapshot struct {
	MenuItem  string  `json:"menu_item"`
	Location  string  `json:"location"`
	AvgPrice  float64 `json:"avg_price"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	UnitsSold int64   `json:"units_sold"`
	Market    string  `json:"market"`
	Season    string  `json:"season"`
	Source    string  `json:"source"`
}

type Forecast struct {
	MenuItem         string  `json:"menu_item"`
	RecommendedPrice float64 `json:"recommended_price"`
	Confidence       float64 `json:"confidence"`
	HorizonDays      int     `json:"horizon_days"`
	Trend            string  `json:"trend"`
}

type priceStats struct {
	Avg   *float64
	Min   *float64
	Max   *float64
	Units *int64
	N     int64
}

type AnalyticsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db, Now: time.Now}
}

// Historical aggregates observed prices of an item in a location.
func (s *AnalyticsService) Historical(ctx context.Context, menuItem, location string) (*HistoricalSnapshot, error) {
	menuItem = orDefault(menuItem, DefaultAnalyticsItem)
	location = orDefault(location, DefaultAnalyticsLocation)
	snap := &HistoricalSnapshot{MenuItem: menuItem, Location: location, Market: location}

	sales := s.salesQuery(ctx, menuItem, location)
	var st priceStats
	err := sales.Select("AVG(fs.price_sold) AS avg, MIN(fs.price_sold) AS min, MAX(fs.price_sold) AS max, " +
		"SUM(fs.units_sold) AS units, COUNT(*) AS n").Scan(&st).Error
	if err != nil {
		return nil, fmt.Errorf("historical sales: %w", err)
	}
	if st.N > 0 && st.Avg != nil {
		snap.AvgPrice, snap.MinPrice, snap.MaxPrice = *st.Avg, deref(st.Min), deref(st.Max)
		snap.UnitsSold = derefInt(st.Units)
		snap.Source = SnapshotFromSales

		var last struct{ Date time.Time }
		if err := s.salesQuery(ctx, menuItem, location).Select("fs.date").Order("fs.date DESC").Limit(1).Scan(&last).Error; err != nil {
			return nil, fmt.Errorf("historical season: %w", err)
		}
		snap.Season = features.Season(last.Date.Month())
	} else {
		list, err := s.listPrices(ctx, menuItem)
		if err != nil {
			return nil, err
		}
		if list.N > 0 && list.Avg != nil {
			snap.AvgPrice, snap.MinPrice, snap.MaxPrice = *list.Avg, deref(list.Min), deref(list.Max)
			snap.Source = SnapshotFromMenu
		} else {
			snap.AvgPrice, snap.MinPrice, snap.MaxPrice = fallbackAvgPrice, fallbackMinPrice, fallbackMaxPrice
			snap.Source = SnapshotFromFallback
		}
		snap.Season = features.Season(s.Now().Month())
	}

	snap.AvgPrice = round2(snap.AvgPrice)
	snap.MinPrice = round2(snap.MinPrice)
	snap.MaxPrice = round2(snap.MaxPrice)
	return snap, nil
}

// Forecast drifts the average list price by 0.05% per day of horizon.
func (s *AnalyticsService) Forecast(ctx context.Context, menuItem string, horizonDays int) (*Forecast, error) {
	menuItem = orDefault(menuItem, DefaultAnalyticsItem)
	if horizonDays < 1 || horizonDays > MaxForecastHorizon {
		return nil, fmt.Errorf("%w: horizon_days must be between 1 and %d", ErrInvalidInput, MaxForecastHorizon)
	}

	list, err := s.listPrices(ctx, menuItem)
	if err != nil {
		return nil, err
	}
	price := fallbackForecastPrice
	if list.N > 0 && list.Avg != nil {
		price = *list.Avg * (1 + float64(horizonDays)*dailyDrift)
	}

	trend := "moderate_increase"
	switch {
	case horizonDays <= 7:
		trend = "stable"
	case horizonDays <= 30:
		trend = "slight_increase"
	}

	return &Forecast{
		MenuItem:         menuItem,
		RecommendedPrice: round2(price),
		Confidence:       math.Max(0.5, 0.95-float64(horizonDays)*0.001),
		HorizonDays:      horizonDays,
		Trend:            trend,
	}, nil
}

func (s *AnalyticsService) salesQuery(ctx context.Context, menuItem, location string) *gorm.DB {
	return s.DB.WithContext(ctx).Table("fact_sales AS fs").
		Joins("JOIN dim_menu_item mi ON mi.product_id = fs.product_id").
		Joins("JOIN dim_restaurant r ON r.restaurant_id = fs.restaurant_id").
		Where("LOWER(mi.product_name) = ? AND LOWER(r.location) = ?", strings.ToLower(menuItem), strings.ToLower(location))
}

func (s *AnalyticsService) listPrices(ctx context.Context, menuItem string) (priceStats, error) {
	var st priceStats
	err := s.DB.WithContext(ctx).Model(&models.MenuItem{}).
		Select("AVG(base_price) AS avg, MIN(base_price) AS min, MAX(base_price) AS max, COUNT(base_price) AS n").
		Where("LOWER(product_name) = ?", strings.ToLower(menuItem)).
		Scan(&st).Error
	if err != nil {
		return st, fmt.Errorf("menu list prices: %w", err)
	}
	return st, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
