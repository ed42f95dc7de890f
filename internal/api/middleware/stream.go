package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Streaming lifts the server write deadline for the progress stream so it
// can outlive the configured write timeout. Other paths are untouched.
func Streaming() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == EventsPath {
				// Writers that cannot change deadlines report ErrNotSupported.
				_ = http.NewResponseController(c.Response().Writer).SetWriteDeadline(time.Time{})
			}
			return next(c)
		}
	}
}
