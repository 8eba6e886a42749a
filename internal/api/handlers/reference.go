package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/services"
)

// ReferenceHandler serves the enumerations clients build their forms from.
type ReferenceHandler struct {
	Menu    *services.MenuService
	Pricing *services.PricingService
}

func NewReferenceHandler(menu *services.MenuService, pricing *services.PricingService) *ReferenceHandler {
	return &ReferenceHandler{Menu: menu, Pricing: pricing}
}

// GET /api/v1/reference/locations
func (h *ReferenceHandler) GetLocations(c *fiber.Ctx) error {
	return c.JSON(catalog.Locations)
}

// GET /api/v1/reference/venue-types
func (h *ReferenceHandler) GetVenueTypes(c *fiber.Ctx) error {
	return c.JSON(catalog.VenueTypes)
}

// GET /api/v1/reference/age-groups
func (h *ReferenceHandler) GetAgeGroups(c *fiber.Ctx) error {
	return c.JSON(catalog.AgeGroups)
}

// GET /api/v1/reference/portion-sizes
func (h *ReferenceHandler) GetPortionSizes(c *fiber.Ctx) error {
	return c.JSON(catalog.PortionSizes())
}

// GetMenuItemNames lists distinct menu item names, sorted. Without a database
// the names come from the served model's catalog.
// GET /api/v1/reference/menu-item-names
func (h *ReferenceHandler) GetMenuItemNames(c *fiber.Ctx) error {
	if h.Menu != nil {
		names, err := h.Menu.Names(c.Context())
		if err != nil {
			return serviceError(c, err, "list menu item names")
		}
		return c.JSON(names)
	}
	if h.Pricing == nil {
		return c.JSON([]string{})
	}
	cat, err := h.Pricing.Catalog(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(cat.Names())
}
