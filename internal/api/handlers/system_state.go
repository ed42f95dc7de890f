package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/print-price-matrix/internal/extraction"
	"github.com/donaldgifford/print-price-matrix/pkg/assist"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// CurrentJobProvider exposes the most recently started job.
type CurrentJobProvider interface {
	Current() (*extraction.Job, bool)
}

// AssistUsage reports mapping-assist provider counters.
type AssistUsage interface {
	Usage() []assist.ProviderUsage
}

// SystemStateHandler handles GET /api/v1/system/state.
type SystemStateHandler struct {
	jobs   CurrentJobProvider
	assist AssistUsage
	stored bool
}

// NewSystemStateHandler creates a SystemStateHandler. usage may be nil when
// mapping assist is disabled.
func NewSystemStateHandler(jobs CurrentJobProvider, usage AssistUsage, historyEnabled bool) *SystemStateHandler {
	return &SystemStateHandler{jobs: jobs, assist: usage, stored: historyEnabled}
}

// SystemState summarizes the server's moving parts.
type SystemState struct {
	JobActive       bool                   `json:"job_active"`
	CurrentJob      *domain.JobStatus      `json:"current_job,omitempty"`
	HistoryEnabled  bool                   `json:"history_enabled"   doc:"True when runs are persisted to a database"`
	AssistEnabled   bool                   `json:"assist_enabled"`
	AssistProviders []assist.ProviderUsage `json:"assist_providers"`
}

// SystemStateOutput is the response for GET /api/v1/system/state.
type SystemStateOutput struct {
	Body SystemState
}

// GetSystemState returns the current job, history and assist status.
func (h *SystemStateHandler) GetSystemState(_ context.Context, _ *struct{}) (*SystemStateOutput, error) {
	resp := &SystemStateOutput{}
	resp.Body.HistoryEnabled = h.stored
	resp.Body.AssistProviders = []assist.ProviderUsage{}

	if job, ok := h.jobs.Current(); ok {
		st := job.Status()
		resp.Body.CurrentJob = &st
		resp.Body.JobActive = !st.State.Terminal()
	}

	if h.assist != nil {
		resp.Body.AssistEnabled = true
		if usage := h.assist.Usage(); usage != nil {
			resp.Body.AssistProviders = usage
		}
	}

	return resp, nil
}

// RegisterSystemStateRoutes registers the system state route on the Huma API.
func RegisterSystemStateRoutes(api huma.API, h *SystemStateHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-system-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/system/state",
		Summary:     "Get system state",
		Description: "Returns the current job, whether run history is persisted, and mapping-assist provider usage.",
		Tags:        []string{"system"},
	}, h.GetSystemState)
}
