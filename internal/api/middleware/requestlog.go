package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

var probePaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
}

// RequestLog returns Echo middleware that logs requests with structured
// fields. It assigns a request ID when none is provided and echoes it in the
// response header. 4xx responses log at warn and 5xx at error; probe
// failures log at warn. Successful probes are logged once, then again only
// after a failure.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var (
		mu          sync.Mutex
		probeHealth = map[string]bool{}
	)

	quiet := func(path string, status int) bool {
		if !isProbe(path) {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		healthy := status < http.StatusBadRequest
		wasHealthy, seen := probeHealth[path]
		probeHealth[path] = healthy
		return healthy && seen && wasHealthy
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			path := c.Request().URL.Path
			if quiet(path, status) {
				return nil
			}

			level := slog.LevelInfo
			switch {
			case isProbe(path) && status >= http.StatusBadRequest:
				level = slog.LevelWarn
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}
			if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
				attrs = append(attrs, "trace_id", sc.TraceID().String())
			}

			log.Log(c.Request().Context(), level, "request", attrs...)
			return nil
		}
	}
}

func isProbe(path string) bool {
	_, ok := probePaths[path]
	return ok
}

func requestID(c echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok {
		return id
	}
	return c.Request().Header.Get(requestIDHeader)
}
