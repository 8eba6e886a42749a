package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yerevan-pricing/backend/internal/services"
)

type ModelRunHandler struct {
	Service *services.ModelRunService
}

func NewModelRunHandler(service *services.ModelRunService) *ModelRunHandler {
	return &ModelRunHandler{Service: service}
}

// ListModelRuns returns the most recent training runs, newest first.
// GET /api/v1/admin/model-runs?limit=
func (h *ModelRunHandler) ListModelRuns(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, err)
	}
	n := 20
	if limit != nil {
		n = *limit
	}
	runs, err := h.Service.Recent(c.Context(), n)
	if err != nil {
		return serviceError(c, err, "list model runs")
	}
	return c.JSON(runs)
}
