// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/carrier-dashboard/backend/internal/analytics"
	"github.com/carrier-dashboard/backend/internal/chart"
	"github.com/carrier-dashboard/backend/internal/grid"
	"github.com/carrier-dashboard/backend/internal/pivot"
	"github.com/carrier-dashboard/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// toAPIError maps domain errors onto the API taxonomy.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, grid.ErrSessionNotFound):
		return notFound("grid session", err)
	case errors.Is(err, grid.ErrRowNotFound):
		return notFound("row", err)
	case errors.Is(err, storage.ErrNotFound):
		return notFound("override", err)
	case errors.Is(err, grid.ErrNoDetail), errors.Is(err, grid.ErrNotEditing):
		return NewConflictError(err.Error())
	case errors.Is(err, grid.ErrInvalidPageSize):
		return NewValidationError("pageSize", err)
	case errors.Is(err, grid.ErrInvalidPage):
		return NewValidationError("goto", err)
	case errors.Is(err, grid.ErrInvalidSort):
		return NewValidationError("sort", err)
	case errors.Is(err, grid.ErrUnknownField):
		return NewValidationError("fields", err)
	case errors.Is(err, chart.ErrInvalidMonth):
		return NewValidationError("month", err)
	case errors.Is(err, chart.ErrInvalidEntity):
		return NewValidationError("entityType", err)
	case errors.Is(err, chart.ErrInvalidCount):
		return NewValidationError("count", err)
	case errors.Is(err, pivot.ErrInvalidSettings), errors.Is(err, analytics.ErrUnknownField):
		return NewBadRequestError("invalid pivot settings", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewServiceUnavailableError("request cancelled before the data was ready")
	}
	return NewInternalError("An unexpected error occurred", err)
}

func notFound(resource string, cause error) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: resource + " not found",
		Details: cause.Error(),
	}
}

// NewErrorHandler returns the echo error handler. Internal error details are only sent to
// clients when showDetails is set.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(logger, false)
func NewErrorHandler(logger *zap.Logger, showDetails bool) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			apiErr = toAPIError(err)
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", apiErr.Status),
				zap.Error(err))
			if !showDetails && apiErr.Code == "INTERNAL_ERROR" {
				apiErr = &APIError{Status: apiErr.Status, Code: apiErr.Code, Message: apiErr.Message}
			}
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
