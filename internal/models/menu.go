/**
 * @description
 * Menu item and category dimension models.
 * Map to the 'dim_menu_item' and 'dim_category' tables.
 *
 * @notes
 * - Prices are stored as numeric and carried as decimals. Base price and
 *   cost may be NULL; the catalog fills them with the catalog median.
 */

package models

import "github.com/shopspring/decimal"

func init() {
	// API clients expect prices as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Category groups menu items ("Coffee", "Grill", ...)
type Category struct {
	CategoryID   int    `gorm:"primaryKey;column:category_id;autoIncrement:false" json:"category_id"`
	CategoryName string `gorm:"column:category_name;not null" json:"category_name"`
}

// TableName overrides the table name used by Category to `dim_category`
func (Category) TableName() string {
	return "dim_category"
}

// MenuItem is a product offered by one restaurant
type MenuItem struct {
	ProductID    int                 `gorm:"primaryKey;column:product_id;autoIncrement:false" json:"product_id"`
	RestaurantID int                 `gorm:"column:restaurant_id;index" json:"restaurant_id"`
	ProductName  string              `gorm:"column:product_name;index" json:"product_name"`
	CategoryID   int                 `gorm:"column:category_id;index" json:"category_id"`
	BasePrice    decimal.NullDecimal `gorm:"column:base_price;type:numeric(12,2)" json:"base_price"`
	Cost         decimal.NullDecimal `gorm:"column:cost;type:numeric(12,2)" json:"cost"`
	PortionSize  string              `gorm:"column:portion_size" json:"portion_size"`
	Available    bool                `gorm:"column:available;default:true" json:"available"`
}

// TableName overrides the table name used by MenuItem to `dim_menu_item`
func (MenuItem) TableName() string {
	return "dim_menu_item"
}
