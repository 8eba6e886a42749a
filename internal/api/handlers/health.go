package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/services"
)

const apiVersion = "1.0.0"

type HealthHandler struct {
	DB      *gorm.DB
	Pricing *services.PricingService
}

func NewHealthHandler(db *gorm.DB, pricing *services.PricingService) *HealthHandler {
	return &HealthHandler{DB: db, Pricing: pricing}
}

// GetHealth reports database reachability and whether a model is loaded.
// It never loads a model itself.
// GET /api/v1/health
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	status := "ok"
	database := "not configured"
	if h.DB != nil {
		database = "connected"
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Context())
		}
		if err != nil {
			database = "disconnected"
			status = "degraded"
		}
	}

	body := fiber.Map{
		"status":   status,
		"version":  apiVersion,
		"database": database,
	}
	if h.Pricing != nil {
		st := h.Pricing.Status()
		body["model_loaded"] = st.Loaded
		if st.Loaded {
			body["model_id"] = st.ModelID
		}
	}
	return c.JSON(body)
}
