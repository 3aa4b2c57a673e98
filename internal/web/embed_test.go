package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasEmbeddedFiles(t *testing.T) {
	assert.True(t, HasEmbeddedFiles())
}

func TestRegisterStaticRoutes(t *testing.T) {
	e := echo.New()
	e.GET("/api/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, RegisterStaticRoutes(e))

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{"root", "/", http.StatusOK, "<title>Carrier Dashboard</title>"},
		{"index file", "/index.html", http.StatusOK, "Carrier Dashboard"},
		{"view path", "/chart", http.StatusOK, "<title>Carrier Dashboard</title>"},
		{"chart bars prompt for an override", "/chart", http.StatusOK, "b.onclick = () => overrideBar(p.month, entity"},
		{"grid rows addressed by row id", "/grid", http.StatusOK, "const rowId = page.rowIds[i];"},
		{"api route wins", "/api/health", http.StatusOK, "ok"},
		{"unknown api path", "/api/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}
