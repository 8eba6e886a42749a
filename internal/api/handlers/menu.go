package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/models"
	"github.com/yerevan-pricing/backend/internal/services"
)

type MenuHandler struct {
	Service *services.MenuService
}

func NewMenuHandler(service *services.MenuService) *MenuHandler {
	return &MenuHandler{Service: service}
}

// ListMenuItems filters by restaurant, category, availability and base price.
// GET /api/v1/menu-items?restaurant_id=&category_id=&available=&min_price=&max_price=
func (h *MenuHandler) ListMenuItems(c *fiber.Ctx) error {
	var (
		f   services.MenuFilter
		err error
	)
	if f.RestaurantID, err = queryInt(c, "restaurant_id"); err != nil {
		return badRequest(c, err)
	}
	if f.CategoryID, err = queryInt(c, "category_id"); err != nil {
		return badRequest(c, err)
	}
	if f.Available, err = queryBool(c, "available"); err != nil {
		return badRequest(c, err)
	}
	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return badRequest(c, err)
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return badRequest(c, err)
	}

	items, err := h.Service.List(c.Context(), f)
	if err != nil {
		return serviceError(c, err, "list menu items")
	}
	return c.JSON(items)
}

// GetMenuItem
// GET /api/v1/menu-items/:id
func (h *MenuHandler) GetMenuItem(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	item, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "fetch menu item")
	}
	return c.JSON(item)
}

// CreateMenuItem
// POST /api/v1/menu-items
func (h *MenuHandler) CreateMenuItem(c *fiber.Ctx) error {
	var m models.MenuItem
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.Service.Create(c.Context(), &m); err != nil {
		return serviceError(c, err, "create menu item")
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// UpdateMenuItem
// PUT /api/v1/menu-items/:id
func (h *MenuHandler) UpdateMenuItem(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	var m models.MenuItem
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.Service.Update(c.Context(), id, &m); err != nil {
		return serviceError(c, err, "update menu item")
	}
	return c.JSON(m)
}

// DeleteMenuItem
// DELETE /api/v1/menu-items/:id
func (h *MenuHandler) DeleteMenuItem(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.Service.Delete(c.Context(), id); err != nil {
		return serviceError(c, err, "delete menu item")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
