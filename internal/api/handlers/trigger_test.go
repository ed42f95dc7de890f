package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/api/handlers"
	"github.com/donaldgifford/print-price-matrix/internal/retention"
)

// mockRetentionRunner implements RetentionRunner for testing.
type mockRetentionRunner struct {
	pruned int
	err    error
	called bool
}

func (m *mockRetentionRunner) RunNow(_ context.Context) (int, error) {
	m.called = true
	return m.pruned, m.err
}

func TestRetentionHandler_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		runner     *mockRetentionRunner
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			runner:     &mockRetentionRunner{pruned: 3},
			wantStatus: http.StatusOK,
			wantBody:   `"runs_pruned":3`,
		},
		{
			name:       "lock held",
			runner:     &mockRetentionRunner{err: fmt.Errorf("run: %w", retention.ErrLockHeld)},
			wantStatus: http.StatusConflict,
			wantBody:   "already running",
		},
		{
			name:       "failure",
			runner:     &mockRetentionRunner{err: errors.New("connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			handlers.RegisterTriggerRoutes(api, handlers.NewRetentionHandler(tt.runner))

			resp := api.Post("/api/v1/jobs/retention/run")
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
			require.True(t, tt.runner.called)
		})
	}
}
