// handlers_pivot.go - Pivot matrix and cross-tabulation handlers
package api

import (
	"fmt"
	"net/http"

	"github.com/carrier-dashboard/backend/internal/analytics"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/pivot"
	"github.com/labstack/echo/v4"
)

// PivotHandlerImpl implements the PivotHandler interface
type PivotHandlerImpl struct {
	provider RecordProvider
	engine   *analytics.Engine
	presets  []models.PivotSettings
}

// NewPivotHandler creates a new pivot handler. presets must start with the default layout.
func NewPivotHandler(provider RecordProvider, engine *analytics.Engine, presets []models.PivotSettings) PivotHandler {
	if len(presets) == 0 {
		presets = []models.PivotSettings{pivot.DefaultSettings()}
	}
	return &PivotHandlerImpl{provider: provider, engine: engine, presets: presets}
}

// matrix builds the matrix for the schema query parameter.
func (h *PivotHandlerImpl) matrix(c echo.Context, schemaParam string) (models.Matrix, error) {
	schema, ok := pivot.ParseSchema(schemaParam)
	if !ok {
		return nil, NewValidationError("schema", fmt.Errorf("unknown schema %q, want first or union", schemaParam))
	}
	snap, err := h.provider.Records(c.Request().Context())
	if err != nil {
		return nil, toAPIError(err)
	}
	markSource(c, snap)
	return pivot.Build(snap.Records, schema), nil
}

// HandleMatrix returns the header-plus-rows matrix
// Query: schema (first|union)
func (h *PivotHandlerImpl) HandleMatrix(c echo.Context) error {
	m, err := h.matrix(c, c.QueryParam("schema"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// HandleMatrixMsgpack returns the matrix encoded as MessagePack
func (h *PivotHandlerImpl) HandleMatrixMsgpack(c echo.Context) error {
	m, err := h.matrix(c, c.QueryParam("schema"))
	if err != nil {
		return err
	}
	data, err := pivot.EncodeMsgpack(m)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, pivot.MsgpackContentType, data)
}

// HandlePresets returns the named layouts and the accepted aggregators and renderers
func (h *PivotHandlerImpl) HandlePresets(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"presets":     h.presets,
		"aggregators": pivot.Aggregators,
		"renderers":   pivot.Renderers,
	})
}

// CrossTabRequest is the body of HandleCrossTab. Settings, when given, take precedence over Preset.
type CrossTabRequest struct {
	Preset   string                `json:"preset"`
	Settings *models.PivotSettings `json:"settings"`
	Schema   string                `json:"schema"`
}

// HandleCrossTab aggregates the current records with the requested layout
func (h *PivotHandlerImpl) HandleCrossTab(c echo.Context) error {
	var req CrossTabRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	var settings models.PivotSettings
	if req.Settings != nil {
		settings = *req.Settings
	} else {
		name := req.Preset
		if name == "" {
			name = pivot.DefaultPresetName
		}
		found := false
		for _, p := range h.presets {
			if p.Name == name {
				settings, found = p, true
				break
			}
		}
		if !found {
			return NewNotFoundError("pivot preset", name)
		}
	}

	m, err := h.matrix(c, req.Schema)
	if err != nil {
		return err
	}
	result, err := h.engine.CrossTab(c.Request().Context(), m, settings)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, result)
}
