// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/source"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// RecordsHandler serves the raw record collection
type RecordsHandler interface {
	HandleGetRecords(c echo.Context) error
	HandleRefresh(c echo.Context) error
}

// GridHandler handles the paginated table and its row detail dialog
type GridHandler interface {
	HandleColumns(c echo.Context) error
	HandlePageSizes(c echo.Context) error
	HandleOpenSession(c echo.Context) error
	HandleGetPage(c echo.Context) error
	HandleCloseSession(c echo.Context) error
	HandleViewRow(c echo.Context) error
	HandleEditRow(c echo.Context) error
	HandleSetFields(c echo.Context) error
	HandleSaveRow(c echo.Context) error
	HandleCloseRow(c echo.Context) error
	HandleDeleteRow(c echo.Context) error
}

// PivotHandler handles the pivot matrix and cross-tabulation
type PivotHandler interface {
	HandleMatrix(c echo.Context) error
	HandleMatrixMsgpack(c echo.Context) error
	HandlePresets(c echo.Context) error
	HandleCrossTab(c echo.Context) error
}

// ChartHandler handles the out-of-service chart and its overrides
type ChartHandler interface {
	HandleSeries(c echo.Context) error
	HandleListOverrides(c echo.Context) error
	HandleSetOverride(c echo.Context) error
	HandleClearOverride(c echo.Context) error
	HandleClearOverrides(c echo.Context) error
}

// EventsHandler streams dashboard events to browsers
type EventsHandler interface {
	HandleWebSocket(c echo.Context) error
}

// RecordProvider is the shared source of the record collection.
// This allows mocking in tests
type RecordProvider interface {
	Records(ctx context.Context) (source.Snapshot, error)
	Refresh(ctx context.Context) (source.Snapshot, error)
	Last() (source.Snapshot, bool)
	Subscribe(fn func(models.Event)) func()
}
