// handlers_grid.go - Grid view handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/carrier-dashboard/backend/internal/grid"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// GridHandlerImpl implements the GridHandler interface
type GridHandlerImpl struct {
	provider RecordProvider
	grids    *grid.Manager
}

// NewGridHandler creates a new grid handler
func NewGridHandler(provider RecordProvider, grids *grid.Manager) GridHandler {
	return &GridHandlerImpl{provider: provider, grids: grids}
}

// HandleColumns returns the column definitions
func (h *GridHandlerImpl) HandleColumns(c echo.Context) error {
	return c.JSON(http.StatusOK, grid.DefaultColumns)
}

// HandlePageSizes returns the allowed page sizes
func (h *GridHandlerImpl) HandlePageSizes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pageSizes": grid.PageSizes,
		"default":   grid.DefaultPageSize,
	})
}

// HandleOpenSession opens a grid view over the current records and returns its first page
func (h *GridHandlerImpl) HandleOpenSession(c echo.Context) error {
	snap, err := h.provider.Records(c.Request().Context())
	if err != nil {
		return toAPIError(err)
	}
	markSource(c, snap)

	sess := h.grids.Open(snap.Records)
	page, err := h.grids.Page(sess.ID, grid.Query{})
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusCreated, page)
}

// HandleGetPage applies sort and paging parameters and returns the current page
// Query: sort, order (asc|desc), pageSize, page (zero-based), goto (one-based)
func (h *GridHandlerImpl) HandleGetPage(c echo.Context) error {
	q := grid.Query{
		SortField: c.QueryParam("sort"),
		SortOrder: models.SortOrder(c.QueryParam("order")),
		GoTo:      c.QueryParam("goto"),
	}
	if v := c.QueryParam("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewValidationError("pageSize", err)
		}
		q.PageSize = n
	}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewValidationError("page", err)
		}
		q.Page = &n
	}

	page, err := h.grids.Page(c.Param("id"), q)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// HandleCloseSession drops a grid view
func (h *GridHandlerImpl) HandleCloseSession(c echo.Context) error {
	if err := h.grids.Remove(c.Param("id")); err != nil {
		return toAPIError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleViewRow opens the detail dialog for a row
func (h *GridHandlerImpl) HandleViewRow(c echo.Context) error {
	detail, err := h.grids.View(c.Param("id"), c.Param("rowId"))
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// openDetail returns the open dialog, opening it for rowId if another row (or none) is open.
func (h *GridHandlerImpl) openDetail(id, rowID string) (models.RowDetail, error) {
	detail, err := h.grids.Detail(id)
	if err == nil && detail.RowID == rowID {
		return detail, nil
	}
	return h.grids.View(id, rowID)
}

// requireOpen fails unless the dialog is open on rowId.
func (h *GridHandlerImpl) requireOpen(id, rowID string) error {
	detail, err := h.grids.Detail(id)
	if err != nil {
		return toAPIError(err)
	}
	if detail.RowID != rowID {
		return NewConflictError("row " + rowID + " is not open; row " + detail.RowID + " is")
	}
	return nil
}

// HandleEditRow switches the row's dialog into edit mode
func (h *GridHandlerImpl) HandleEditRow(c echo.Context) error {
	id, rowID := c.Param("id"), c.Param("rowId")
	if _, err := h.openDetail(id, rowID); err != nil {
		return toAPIError(err)
	}
	detail, err := h.grids.BeginEdit(id)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// SetFieldsRequest is the body of HandleSetFields
type SetFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// HandleSetFields changes draft field values of the row being edited
func (h *GridHandlerImpl) HandleSetFields(c echo.Context) error {
	id, rowID := c.Param("id"), c.Param("rowId")

	var req SetFieldsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if len(req.Fields) == 0 {
		return NewValidationError("fields", nil)
	}
	if err := h.requireOpen(id, rowID); err != nil {
		return err
	}

	detail, err := h.grids.SetFields(id, req.Fields)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// HandleSaveRow commits the draft into the grid view. Nothing is sent upstream.
func (h *GridHandlerImpl) HandleSaveRow(c echo.Context) error {
	id, rowID := c.Param("id"), c.Param("rowId")
	if err := h.requireOpen(id, rowID); err != nil {
		return err
	}
	detail, err := h.grids.Save(id)
	if err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// HandleCloseRow closes the dialog, discarding unsaved changes
func (h *GridHandlerImpl) HandleCloseRow(c echo.Context) error {
	id, rowID := c.Param("id"), c.Param("rowId")
	if err := h.requireOpen(id, rowID); err != nil {
		return err
	}
	if err := h.grids.CloseDetail(id); err != nil {
		return toAPIError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteRow acknowledges a delete request. The data source has no write endpoint, so
// nothing is removed.
func (h *GridHandlerImpl) HandleDeleteRow(c echo.Context) error {
	rowID := c.Param("rowId")
	if err := h.grids.Delete(c.Param("id"), rowID); err != nil {
		return toAPIError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"rowId":   rowID,
		"deleted": false,
	})
}
