// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/carrier-dashboard/backend/internal/grid"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	provider RecordProvider
	grids    *grid.Manager
	hub      *Hub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, provider RecordProvider, grids *grid.Manager, hub *Hub) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		provider: provider,
		grids:    grids,
		hub:      hub,
	}
}

// HandleHealth returns server health status and the state of the last upstream fetch
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.grids != nil {
		resp["gridSessions"] = h.grids.Len()
	}
	if h.hub != nil {
		resp["eventClients"] = h.hub.Len()
	}
	if h.provider != nil {
		if snap, ok := h.provider.Last(); ok {
			src := map[string]interface{}{
				"fetchedAt": snap.FetchedAt.Format(time.RFC3339),
				"records":   len(snap.Records),
				"degraded":  snap.Degraded,
				"fromCache": snap.FromCache,
			}
			if snap.Err != nil {
				src["error"] = snap.Err.Error()
			}
			resp["source"] = src
		}
	}
	return c.JSON(http.StatusOK, resp)
}
