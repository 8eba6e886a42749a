package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/models"
	"github.com/yerevan-pricing/backend/internal/services"
)

type RestaurantHandler struct {
	Service *services.RestaurantService
}

func NewRestaurantHandler(service *services.RestaurantService) *RestaurantHandler {
	return &RestaurantHandler{Service: service}
}

// ListRestaurants
// GET /api/v1/restaurants?location=&venue_type=&min_rating=
func (h *RestaurantHandler) ListRestaurants(c *fiber.Ctx) error {
	minRating, err := queryFloat(c, "min_rating")
	if err != nil {
		return badRequest(c, err)
	}
	out, err := h.Service.List(c.Context(), services.RestaurantFilter{
		Location:  c.Query("location"),
		VenueType: c.Query("venue_type"),
		MinRating: minRating,
	})
	if err != nil {
		return serviceError(c, err, "list restaurants")
	}
	return c.JSON(out)
}

// GetRestaurant
// GET /api/v1/restaurants/:id
func (h *RestaurantHandler) GetRestaurant(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	r, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "fetch restaurant")
	}
	return c.JSON(r)
}

// CreateRestaurant
// POST /api/v1/restaurants
func (h *RestaurantHandler) CreateRestaurant(c *fiber.Ctx) error {
	var r models.Restaurant
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.Service.Create(c.Context(), &r); err != nil {
		return serviceError(c, err, "create restaurant")
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// UpdateRestaurant
// PUT /api/v1/restaurants/:id
func (h *RestaurantHandler) UpdateRestaurant(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	var r models.Restaurant
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.Service.Update(c.Context(), id, &r); err != nil {
		return serviceError(c, err, "update restaurant")
	}
	return c.JSON(r)
}

// DeleteRestaurant
// DELETE /api/v1/restaurants/:id
func (h *RestaurantHandler) DeleteRestaurant(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.Service.Delete(c.Context(), id); err != nil {
		return serviceError(c, err, "delete restaurant")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
