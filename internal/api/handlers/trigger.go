package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/print-price-matrix/internal/retention"
)

// RetentionRunner performs one retention sweep on demand.
type RetentionRunner interface {
	RunNow(ctx context.Context) (int, error)
}

// RetentionHandler handles manual retention trigger requests.
type RetentionHandler struct {
	runner RetentionRunner
}

// NewRetentionHandler creates a new RetentionHandler.
func NewRetentionHandler(r RetentionRunner) *RetentionHandler {
	return &RetentionHandler{runner: r}
}

// RetentionOutput is the response body for the retention trigger.
type RetentionOutput struct {
	Body struct {
		Status     string `json:"status"      example:"retention completed" doc:"Sweep status"`
		RunsPruned int    `json:"runs_pruned" example:"3"                   doc:"Runs deleted by this sweep"`
	}
}

// Run triggers an immediate retention sweep.
func (h *RetentionHandler) Run(ctx context.Context, _ *struct{}) (*RetentionOutput, error) {
	n, err := h.runner.RunNow(ctx)
	if errors.Is(err, retention.ErrLockHeld) {
		return nil, huma.Error409Conflict("retention is already running")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("retention failed: " + err.Error())
	}

	resp := &RetentionOutput{}
	resp.Body.Status = "retention completed"
	resp.Body.RunsPruned = n
	return resp, nil
}

// RegisterTriggerRoutes registers manual trigger endpoints with the Huma API.
func RegisterTriggerRoutes(api huma.API, h *RetentionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-retention",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/retention/run",
		Summary:     "Run retention now",
		Description: "Deletes runs older than the configured max age, and their output " +
			"directories when pruning outputs is enabled. The run is recorded in job history.",
		Tags:   []string{"scheduler"},
		Errors: []int{http.StatusConflict, http.StatusInternalServerError},
	}, h.Run)
}
