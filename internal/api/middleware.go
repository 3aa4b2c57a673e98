package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// MiddlewareConfig selects the common middleware
type MiddlewareConfig struct {
	Logger           *zap.Logger
	RequestLogging   bool
	RequestTimeout   time.Duration
	EnableGzip       bool
	GzipLevel        int
	BodyLimit        string
	EnableCORS       bool
	AllowOrigins     []string
	ShowErrorDetails bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(logger, cfg.ShowErrorDetails)

	if cfg.RequestLogging {
		e.Use(RequestLogger(logger))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
				zap.ByteString("stack", stack))
			return err
		},
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout:      cfg.RequestTimeout,
			Skipper:      isStreaming,
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	// Compression middleware
	if cfg.EnableGzip {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.GzipLevel,
			Skipper: isStreaming,
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			ExposeHeaders: []string{HeaderSourceStatus},
		}))
	}
}

// RequestLogger logs one line per request through zap
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	logger = logger.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				logger.Warn("request", fields...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

// isStreaming skips middleware that would buffer or cut long-lived connections
func isStreaming(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/ws/") ||
		c.Request().Header.Get("Upgrade") == "websocket"
}
