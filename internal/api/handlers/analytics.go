package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/services"
)

type AnalyticsHandler struct {
	Service *services.AnalyticsService
}

func NewAnalyticsHandler(service *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Service: service}
}

// GetHistorical summarises past prices of a menu item in a location.
// GET /api/v1/analytics/historical?menu_item=&location=
func (h *AnalyticsHandler) GetHistorical(c *fiber.Ctx) error {
	snap, err := h.Service.Historical(c.Context(),
		c.Query("menu_item", services.DefaultAnalyticsItem),
		c.Query("location", services.DefaultAnalyticsLocation))
	if err != nil {
		return serviceError(c, err, "fetch historical prices")
	}
	return c.JSON(snap)
}

// GetForecast
// GET /api/v1/analytics/forecast?menu_item=&horizon_days=
func (h *AnalyticsHandler) GetForecast(c *fiber.Ctx) error {
	horizon, err := queryInt(c, "horizon_days")
	if err != nil {
		return badRequest(c, err)
	}
	days := services.DefaultForecastHorizon
	if horizon != nil {
		days = *horizon
	}
	out, err := h.Service.Forecast(c.Context(), c.Query("menu_item", services.DefaultAnalyticsItem), days)
	if err != nil {
		return serviceError(c, err, "forecast price")
	}
	return c.JSON(out)
}
