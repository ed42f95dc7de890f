package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		handler    echo.HandlerFunc
		wantStatus int
		wantBody   string
		wantLog    []string
	}{
		{
			name:       "no panic passes through silently",
			method:     http.MethodGet,
			handler:    func(c echo.Context) error { return c.String(http.StatusAccepted, "started") },
			wantStatus: http.StatusAccepted,
			wantBody:   "started",
		},
		{
			name:       "string panic",
			method:     http.MethodPost,
			handler:    func(echo.Context) error { panic("combination index out of range") },
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal server error",
			wantLog:    []string{"panic recovered", "combination index out of range", "method=POST", "request_id=req-7"},
		},
		{
			name:       "error panic",
			method:     http.MethodGet,
			handler:    func(echo.Context) error { panic(errors.New("nil job handle")) },
			wantStatus: http.StatusInternalServerError,
			wantLog:    []string{"nil job handle", "path=/api/v1/extractions/current"},
		},
		{
			name:   "panic after the stream started keeps the response",
			method: http.MethodGet,
			handler: func(c echo.Context) error {
				c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
				c.Response().WriteHeader(http.StatusOK)
				_, _ = c.Response().Write([]byte("event: progress\n\n"))
				panic(42)
			},
			wantStatus: http.StatusOK,
			wantBody:   "event: progress",
			wantLog:    []string{"42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			req := httptest.NewRequest(tt.method, "/api/v1/extractions/current", http.NoBody)
			req.Header.Set(requestIDHeader, "req-7")
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			before := ptestutil.ToFloat64(metrics.HTTPPanicsTotal)
			require.NoError(t, Recovery(logger)(tt.handler)(c))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if len(tt.wantLog) == 0 {
				assert.Empty(t, buf.String())
				return
			}
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
			assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.HTTPPanicsTotal)-before, 1.0)
		})
	}
}
