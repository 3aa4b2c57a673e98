// handlers_records.go - Raw record collection handlers
package api

import (
	"net/http"
	"time"

	"github.com/carrier-dashboard/backend/internal/source"
	"github.com/labstack/echo/v4"
)

// HeaderSourceStatus marks responses built from an empty fallback after a failed upstream read.
const HeaderSourceStatus = "X-Source-Status"

// markSource sets the source status header for snap.
func markSource(c echo.Context, snap source.Snapshot) {
	if snap.Degraded {
		c.Response().Header().Set(HeaderSourceStatus, "degraded")
	}
}

// RecordsHandlerImpl implements the RecordsHandler interface
type RecordsHandlerImpl struct {
	provider RecordProvider
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(provider RecordProvider) RecordsHandler {
	return &RecordsHandlerImpl{provider: provider}
}

// HandleGetRecords returns the record collection with each record's keys in upstream order
func (h *RecordsHandlerImpl) HandleGetRecords(c echo.Context) error {
	snap, err := h.provider.Records(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	markSource(c, snap)
	return c.JSON(http.StatusOK, snap.Records)
}

// HandleRefresh drops the cached payload and fetches again
func (h *RecordsHandlerImpl) HandleRefresh(c echo.Context) error {
	snap, err := h.provider.Refresh(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	markSource(c, snap)
	resp := map[string]interface{}{
		"records":   len(snap.Records),
		"degraded":  snap.Degraded,
		"fetchedAt": snap.FetchedAt.Format(time.RFC3339),
	}
	if snap.Err != nil {
		resp["error"] = snap.Err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}
