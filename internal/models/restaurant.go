/**
 * @description
 * Restaurant and customer dimension models.
 * Map to the 'dim_restaurant' and 'dim_customer' tables.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/shopspring/decimal
 */

package models

import "github.com/shopspring/decimal"

// Restaurant is one venue. The venue type lives in the 'type' column.
type Restaurant struct {
	RestaurantID     int             `gorm:"primaryKey;column:restaurant_id;autoIncrement:false" json:"restaurant_id"`
	Name             string          `gorm:"column:name;not null" json:"name"`
	Location         string          `gorm:"column:location;index" json:"location"`
	VenueType        string          `gorm:"column:type;index" json:"venue_type"`
	AvgCustomerCount int             `gorm:"column:avg_customer_count" json:"avg_customer_count"`
	Rating           decimal.Decimal `gorm:"column:rating;type:numeric(3,2)" json:"rating"`
	OwnerContact     string          `gorm:"column:owner_contact" json:"owner_contact"`
}

// TableName overrides the table name used by Restaurant to `dim_restaurant`
func (Restaurant) TableName() string {
	return "dim_restaurant"
}

// Customer is an anonymised customer profile
type Customer struct {
	CustomerID     int             `gorm:"primaryKey;column:customer_id;autoIncrement:false" json:"customer_id"`
	Gender         string          `gorm:"column:gender" json:"gender"`
	AgeGroup       string          `gorm:"column:age_group;index" json:"age_group"`
	AvgSpending    decimal.Decimal `gorm:"column:avg_spending;type:numeric(12,2)" json:"avg_spending"`
	VisitFrequency int             `gorm:"column:visit_frequency" json:"visit_frequency"`
}

// TableName overrides the table name used by Customer to `dim_customer`
func (Customer) TableName() string {
	return "dim_customer"
}
