package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/print-price-matrix/internal/store"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// RunsProvider defines the store methods required by the runs handler.
type RunsProvider interface {
	ListRuns(ctx context.Context, q *store.RunQuery) ([]domain.ExtractionSummary, int, error)
	GetRun(ctx context.Context, id string) (*domain.ExtractionSummary, error)
	ListRunResults(ctx context.Context, runID string) ([]domain.PriceResult, error)
}

// RunsHandler serves persisted run history.
type RunsHandler struct {
	store RunsProvider
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(s RunsProvider) *RunsHandler {
	return &RunsHandler{store: s}
}

// --- Input/Output types ---

// ListRunsInput is the input for listing runs with optional filters.
type ListRunsInput struct {
	ProductID   string    `query:"product_id"   doc:"Filter by vendor product id"`
	ProductName string    `query:"product_name" doc:"Case-insensitive product name substring"`
	State       string    `query:"state"        doc:"Filter by final state"                  enum:"completed,aborted,"`
	Since       time.Time `query:"since"        doc:"Only runs started at or after this time"`
	Limit       int       `query:"limit"        doc:"Number of results (default 50)"         minimum:"1" maximum:"500"`
	Offset      int       `query:"offset"       doc:"Pagination offset"                      minimum:"0"`
	OrderBy     string    `query:"order_by"     doc:"Sort field"                             enum:"started_at,success_rate,total_combinations,"`
}

// ListRunsOutput is the response for listing runs.
type ListRunsOutput struct {
	Body struct {
		Runs   []domain.ExtractionSummary `json:"runs"`
		Total  int                        `json:"total"`
		Limit  int                        `json:"limit"`
		Offset int                        `json:"offset"`
	}
}

// RunIDInput identifies a persisted run.
type RunIDInput struct {
	ID string `path:"id" doc:"Run (job) UUID"`
}

// GetRunOutput is the response for a single run.
type GetRunOutput struct {
	Body domain.ExtractionSummary
}

// ListRunResultsOutput is the response for a run's per-combination results.
type ListRunResultsOutput struct {
	Body []domain.PriceResult
}

// --- Handlers ---

// ListRuns returns run summaries, newest first by default.
func (h *RunsHandler) ListRuns(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	q := &store.RunQuery{
		Limit:   input.Limit,
		Offset:  input.Offset,
		OrderBy: input.OrderBy,
	}
	if input.ProductID != "" {
		q.ProductID = &input.ProductID
	}
	if input.ProductName != "" {
		q.ProductName = &input.ProductName
	}
	if input.State != "" {
		q.State = &input.State
	}
	if !input.Since.IsZero() {
		q.Since = &input.Since
	}

	runs, total, err := h.store.ListRuns(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("run query failed: " + err.Error())
	}
	if runs == nil {
		runs = []domain.ExtractionSummary{}
	}

	resp := &ListRunsOutput{}
	resp.Body.Runs = runs
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset
	return resp, nil
}

// GetRun returns a single run summary.
func (h *RunsHandler) GetRun(ctx context.Context, input *RunIDInput) (*GetRunOutput, error) {
	run, err := h.store.GetRun(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("run not found")
		}
		return nil, huma.Error500InternalServerError("fetching run failed: " + err.Error())
	}
	return &GetRunOutput{Body: *run}, nil
}

// ListRunResults returns every per-combination result of a run.
func (h *RunsHandler) ListRunResults(ctx context.Context, input *RunIDInput) (*ListRunResultsOutput, error) {
	if _, err := h.store.GetRun(ctx, input.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("run not found")
		}
		return nil, huma.Error500InternalServerError("fetching run failed: " + err.Error())
	}

	results, err := h.store.ListRunResults(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching results failed: " + err.Error())
	}
	if results == nil {
		results = []domain.PriceResult{}
	}
	return &ListRunResultsOutput{Body: results}, nil
}

// RegisterRunRoutes registers run history endpoints with the Huma API.
func RegisterRunRoutes(api huma.API, h *RunsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List extraction runs",
		Description: "Returns persisted run summaries with optional filters and pagination.",
		Tags:        []string{"runs"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{id}",
		Summary:     "Get an extraction run",
		Tags:        []string{"runs"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetRun)

	huma.Register(api, huma.Operation{
		OperationID: "list-run-results",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/{id}/results",
		Summary:     "List a run's results",
		Description: "Returns every per-combination pricing result of a run in enumeration order.",
		Tags:        []string{"runs"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.ListRunResults)
}
