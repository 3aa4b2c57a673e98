// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/carrier-dashboard/backend/internal/analytics"
	"github.com/carrier-dashboard/backend/internal/chart"
	"github.com/carrier-dashboard/backend/internal/grid"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Provider RecordProvider
	Grids    *grid.Manager
	Charts   *chart.Service
	Engine   *analytics.Engine
	Presets  []models.PivotSettings
	Hub      *Hub
	Version  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Records RecordsHandler
	Grid    GridHandler
	Pivot   PivotHandler
	Chart   ChartHandler
	Events  EventsHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(nil)
	}
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Provider, deps.Grids, hub),
		Records: NewRecordsHandler(deps.Provider),
		Grid:    NewGridHandler(deps.Provider, deps.Grids),
		Pivot:   NewPivotHandler(deps.Provider, deps.Engine, deps.Presets),
		Chart:   NewChartHandler(deps.Charts),
		Events:  hub,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Records
	apiGroup.GET("/records", handlers.Records.HandleGetRecords)
	apiGroup.POST("/records/refresh", handlers.Records.HandleRefresh)

	// Grid view
	gridGroup := apiGroup.Group("/grid")
	gridGroup.GET("/columns", handlers.Grid.HandleColumns)
	gridGroup.GET("/page-sizes", handlers.Grid.HandlePageSizes)
	gridGroup.POST("/sessions", handlers.Grid.HandleOpenSession)
	gridGroup.GET("/sessions/:id", handlers.Grid.HandleGetPage)
	gridGroup.DELETE("/sessions/:id", handlers.Grid.HandleCloseSession)
	gridGroup.GET("/sessions/:id/rows/:rowId", handlers.Grid.HandleViewRow)
	gridGroup.POST("/sessions/:id/rows/:rowId/edit", handlers.Grid.HandleEditRow)
	gridGroup.PUT("/sessions/:id/rows/:rowId/fields", handlers.Grid.HandleSetFields)
	gridGroup.POST("/sessions/:id/rows/:rowId/save", handlers.Grid.HandleSaveRow)
	gridGroup.POST("/sessions/:id/rows/:rowId/close", handlers.Grid.HandleCloseRow)
	gridGroup.DELETE("/sessions/:id/rows/:rowId", handlers.Grid.HandleDeleteRow)

	// Pivot view
	pivotGroup := apiGroup.Group("/pivot")
	pivotGroup.GET("/matrix", handlers.Pivot.HandleMatrix)
	pivotGroup.GET("/matrix/msgpack", handlers.Pivot.HandleMatrixMsgpack)
	pivotGroup.GET("/presets", handlers.Pivot.HandlePresets)
	pivotGroup.POST("/crosstab", handlers.Pivot.HandleCrossTab)

	// Chart view
	chartGroup := apiGroup.Group("/chart")
	chartGroup.GET("/out-of-service", handlers.Chart.HandleSeries)
	chartGroup.GET("/overrides", handlers.Chart.HandleListOverrides)
	chartGroup.PUT("/overrides", handlers.Chart.HandleSetOverride)
	chartGroup.DELETE("/overrides", handlers.Chart.HandleClearOverrides)
	chartGroup.DELETE("/overrides/:month/:entityType", handlers.Chart.HandleClearOverride)

	// Event notifications
	apiGroup.GET("/ws/events", handlers.Events.HandleWebSocket)
}
