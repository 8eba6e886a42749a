package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/services"
)

// CustomerHandler serves read-only customer and category listings.
type CustomerHandler struct {
	Customers  *services.CustomerService
	Categories *services.CategoryService
}

func NewCustomerHandler(customers *services.CustomerService, categories *services.CategoryService) *CustomerHandler {
	return &CustomerHandler{Customers: customers, Categories: categories}
}

// ListCustomers
// GET /api/v1/customers?age_group=&gender=&min_spending=
func (h *CustomerHandler) ListCustomers(c *fiber.Ctx) error {
	minSpending, err := queryFloat(c, "min_spending")
	if err != nil {
		return badRequest(c, err)
	}
	out, err := h.Customers.List(c.Context(), services.CustomerFilter{
		AgeGroup:    c.Query("age_group"),
		Gender:      c.Query("gender"),
		MinSpending: minSpending,
	})
	if err != nil {
		return serviceError(c, err, "list customers")
	}
	return c.JSON(out)
}

// GetCustomer
// GET /api/v1/customers/:id
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err)
	}
	out, err := h.Customers.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "fetch customer")
	}
	return c.JSON(out)
}

// ListCategories
// GET /api/v1/categories
func (h *CustomerHandler) ListCategories(c *fiber.Ctx) error {
	out, err := h.Categories.List(c.Context())
	if err != nil {
		return serviceError(c, err, "list categories")
	}
	return c.JSON(out)
}
