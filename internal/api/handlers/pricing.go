/**
 * @description
 * Pricing API Handlers.
 * Exposes price prediction, model status and model reload.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/pricing
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/artifact"
	"github.com/yerevan-pricing/backend/internal/catalog"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/pricing"
	"github.com/yerevan-pricing/backend/internal/services"
)

const confidenceNote = "Estimate from the trained pricing model; verify against current market conditions."

type PricingHandler struct {
	Service *services.PricingService
}

func NewPricingHandler(service *services.PricingService) *PricingHandler {
	return &PricingHandler{Service: service}
}

type predictResponse struct {
	*pricing.Response
	ConfidenceNote string `json:"confidence_note"`
}

// PredictPrice predicts from query parameters
// GET /api/v1/predict-price?product_name=&location=&venue_type=&portion_size=&age_group=
func (h *PricingHandler) PredictPrice(c *fiber.Ctx) error {
	req := pricing.Request{
		ProductName: c.Query("product_name"),
		Location:    c.Query("location"),
		VenueType:   c.Query("venue_type"),
		PortionSize: c.Query("portion_size"),
		AgeGroup:    c.Query("age_group"),
	}
	return h.predict(c, req)
}

// PredictPriceJSON predicts from a JSON body, which may carry numeric overrides
// POST /api/v1/predict-price
func (h *PricingHandler) PredictPriceJSON(c *fiber.Ctx) error {
	var req pricing.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	return h.predict(c, req)
}

func (h *PricingHandler) predict(c *fiber.Ctx, req pricing.Request) error {
	// canonical spelling for known enumerations; other values pass through
	if v, ok := catalog.MatchFold(catalog.Locations, req.Location); ok {
		req.Location = v
	}
	if v, ok := catalog.MatchFold(catalog.VenueTypes, req.VenueType); ok {
		req.VenueType = v
	}
	if v, ok := catalog.MatchFold(catalog.AgeGroups, req.AgeGroup); ok {
		req.AgeGroup = v
	}

	resp, err := h.Service.Predict(c.Context(), req)
	switch {
	case err == nil:
		return c.JSON(predictResponse{Response: resp, ConfidenceNote: confidenceNote})
	case errors.Is(err, pricing.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, catalog.ErrUnknownProduct):
		body := fiber.Map{"error": err.Error()}
		if cat, cerr := h.Service.Catalog(c.Context()); cerr == nil {
			if s, ok := cat.Suggest(req.ProductName); ok {
				body["suggestion"] = s
			}
		}
		return c.Status(fiber.StatusNotFound).JSON(body)
	case errors.Is(err, artifact.ErrModelUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Model not available. Train a model first.",
		})
	default:
		logger.Error("PricingHandler: prediction failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Prediction failed"})
	}
}

// GetModelStatus describes the served model
// GET /api/v1/model
func (h *PricingHandler) GetModelStatus(c *fiber.Ctx) error {
	return c.JSON(h.Service.Status())
}

// ReloadModel reloads the artifact here and asks other instances to follow
// POST /api/v1/admin/reload
func (h *PricingHandler) ReloadModel(c *fiber.Ctx) error {
	status, err := h.Service.Reload(c.Context())
	if err != nil {
		if errors.Is(err, artifact.ErrModelUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Reload failed"})
	}
	if err := h.Service.Broadcast(c.Context()); err != nil {
		logger.Warn("PricingHandler: reload broadcast failed: %v", err)
	}
	return c.JSON(status)
}
