/**
 * @description
 * Sales fact and calendar dimension models.
 * Map to the 'fact_sales' and 'dim_time' tables.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one observed transaction; immutable once ingested
type Sale struct {
	SaleID       int64           `gorm:"primaryKey;column:sale_id;autoIncrement:false" json:"sale_id"`
	ProductID    int             `gorm:"column:product_id;index:idx_fact_sales_product_date" json:"product_id"`
	RestaurantID int             `gorm:"column:restaurant_id;index" json:"restaurant_id"`
	CustomerID   int             `gorm:"column:customer_id;index" json:"customer_id"`
	Date         time.Time       `gorm:"column:date;type:date;index:idx_fact_sales_product_date" json:"date"`
	UnitsSold    int             `gorm:"column:units_sold" json:"units_sold"`
	PriceSold    decimal.Decimal `gorm:"column:price_sold;type:numeric(12,2)" json:"price_sold"`
	Revenue      decimal.Decimal `gorm:"column:revenue;type:numeric(14,2)" json:"revenue"`
}

// TableName overrides the table name used by Sale to `fact_sales`
func (Sale) TableName() string {
	return "fact_sales"
}

// CalendarDay is a row of the day-level calendar dimension
type CalendarDay struct {
	Date      time.Time `gorm:"primaryKey;column:date;type:date" json:"date"`
	Year      int       `gorm:"column:year" json:"year"`
	Month     int       `gorm:"column:month" json:"month"`
	Day       int       `gorm:"column:day" json:"day"`
	DayOfWeek int       `gorm:"column:day_of_week" json:"day_of_week"`
	Season    string    `gorm:"column:season" json:"season"`
}

// TableName overrides the table name used by CalendarDay to `dim_time`
func (CalendarDay) TableName() string {
	return "dim_time"
}
