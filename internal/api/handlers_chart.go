// handlers_chart.go - Out-of-service chart and override handlers
package api

import (
	"net/http"

	"github.com/carrier-dashboard/backend/internal/chart"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ChartHandlerImpl implements the ChartHandler interface
type ChartHandlerImpl struct {
	service *chart.Service
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service *chart.Service) ChartHandler {
	return &ChartHandlerImpl{service: service}
}

// HandleSeries returns the monthly buckets with overrides applied
func (h *ChartHandlerImpl) HandleSeries(c echo.Context) error {
	series, err := h.service.Series(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	if series.Degraded {
		c.Response().Header().Set(HeaderSourceStatus, "degraded")
	}
	return c.JSON(http.StatusOK, series)
}

// HandleListOverrides returns the stored overrides
func (h *ChartHandlerImpl) HandleListOverrides(c echo.Context) error {
	overrides, err := h.service.Overrides(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, overrides)
}

// SetOverrideRequest is the body of HandleSetOverride
type SetOverrideRequest struct {
	Month      string            `json:"month"`
	EntityType models.EntityType `json:"entityType"`
	Count      *int              `json:"count"`
}

// HandleSetOverride stores a manual value for one bucket cell
func (h *ChartHandlerImpl) HandleSetOverride(c echo.Context) error {
	var req SetOverrideRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("count must be an integer", err)
	}
	if req.Count == nil {
		return NewValidationError("count", nil)
	}

	o, err := h.service.SetOverride(c.Request().Context(), req.Month, req.EntityType, *req.Count)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, o)
}

// HandleClearOverride removes the override of one bucket cell
func (h *ChartHandlerImpl) HandleClearOverride(c echo.Context) error {
	month := c.Param("month")
	entity := models.EntityType(c.Param("entityType"))
	if err := h.service.ClearOverride(c.Request().Context(), month, entity); err != nil {
		return toAPIError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleClearOverrides removes every override
func (h *ChartHandlerImpl) HandleClearOverrides(c echo.Context) error {
	n, err := h.service.ClearAll(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed": n})
}
