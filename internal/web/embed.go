// Package web embeds the dashboard page so the server runs without a separate frontend host.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// RegisterStaticRoutes serves the dashboard for every path not claimed by another route.
// Register the API routes first. Unknown /api paths get a 404 instead of the page.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean(c.Request().URL.Path)
		if requestPath == "/api" || strings.HasPrefix(requestPath, "/api/") {
			return echo.ErrNotFound
		}

		name := strings.TrimPrefix(requestPath, "/")
		if name == "" || name == "index.html" {
			return serveIndexHTML(c, staticFS)
		}
		stat, err := fs.Stat(staticFS, name)
		if err != nil || stat.IsDir() {
			// Client-side view paths such as /grid or /chart load the page itself.
			return serveIndexHTML(c, staticFS)
		}

		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	return nil
}

// serveIndexHTML serves the dashboard page
func serveIndexHTML(c echo.Context, staticFS fs.FS) error {
	content, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
	}
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTMLBlob(http.StatusOK, content)
}

// HasEmbeddedFiles returns true if the dashboard page has been embedded.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(staticFiles, "dist/index.html")
	return err == nil
}
