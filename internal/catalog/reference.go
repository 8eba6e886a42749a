package catalog

import "github.com/yerevan-pricing/backend/internal/features"

// Static reference enumerations offered to clients. Models treat these as
// opaque categorical levels; values outside them are still accepted.
var (
	Locations = []string{
		"Ajapnyak",
		"Arabkir",
		"Kentron",
		"Malatia-Sebastia",
		"Nor Nork",
	}

	VenueTypes = []string{
		"bakery_cafe",
		"bar_bistro",
		"bar_restaurant",
		"bistro",
		"brewpub",
		"cafe",
		"cafe_bistro",
		"cafe_dessert",
		"cafe_restaurant",
		"coffee_chain",
		"coffee_house",
		"fast_food",
		"gastropub",
		"healthy_cafe",
		"italian_rest",
		"pizzeria",
		"restaurant",
		"wine_bar",
	}

	AgeGroups = []string{"0-17", "18-24", "25-34", "35-44", "45-54", "55+"}
)

// DefaultAgeGroup is the mid-range bracket used when a request omits one.
const DefaultAgeGroup = "25-34"

// PortionSizes returns the bucket names in ascending order.
func PortionSizes() []string {
	out := make([]string, len(features.Buckets))
	for i, b := range features.Buckets {
		out[i] = string(b)
	}
	return out
}
