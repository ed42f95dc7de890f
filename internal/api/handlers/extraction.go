package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/print-price-matrix/internal/aggregate"
	"github.com/donaldgifford/print-price-matrix/internal/extraction"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// JobManager defines the extraction manager operations the API needs.
type JobManager interface {
	Start(ctx context.Context, req extraction.StartRequest) (*extraction.Job, error)
	Current() (*extraction.Job, bool)
	Get(id string) (*extraction.Job, error)
}

// ExtractionHandler controls extraction jobs.
type ExtractionHandler struct {
	manager JobManager
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(m JobManager) *ExtractionHandler {
	return &ExtractionHandler{manager: m}
}

// --- Input/Output types ---

// StartExtractionInput is the request body for starting a job.
type StartExtractionInput struct {
	Body struct {
		Analysis          domain.ProductAnalysis `json:"analysis"                     doc:"Option discovery output for one product"`
		ExcludeOptions    []string               `json:"exclude_options,omitempty"    doc:"Option names to leave out"`
		ExcludeSuboptions map[string][]string    `json:"exclude_suboptions,omitempty" doc:"Option name to value IDs to leave out"`
	}
}

// JobStatusOutput wraps a job status snapshot.
type JobStatusOutput struct {
	Body domain.JobStatus
}

// JobIDInput identifies a job by path.
type JobIDInput struct {
	ID string `path:"id" doc:"Extraction job UUID"`
}

// TablesOutput is the JSON rendering of a job's tables.
type TablesOutput struct {
	Body struct {
		JobID    string          `json:"job_id"`
		State    domain.JobState `json:"state"`
		Complete bool            `json:"complete" doc:"False while the job is still running"`
		aggregate.Tables
	}
}

// DownloadInput selects a job's CSV export.
type DownloadInput struct {
	ID   string `path:"id"   doc:"Extraction job UUID"`
	Kind string `path:"kind" doc:"Table shape" enum:"raw,formatted"`
}

// DownloadOutput is a CSV attachment.
type DownloadOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// --- Handlers ---

// Start validates the request and launches a job.
func (h *ExtractionHandler) Start(
	ctx context.Context,
	input *StartExtractionInput,
) (*JobStatusOutput, error) {
	analysis := input.Body.Analysis
	job, err := h.manager.Start(ctx, extraction.StartRequest{
		Analysis: &analysis,
		Exclusions: domain.Exclusions{
			Options: input.Body.ExcludeOptions,
			Values:  input.Body.ExcludeSuboptions,
		},
	})
	if err != nil {
		return nil, startError(err)
	}

	return &JobStatusOutput{Body: job.Status()}, nil
}

func startError(err error) error {
	var setupErr *extraction.SetupError
	switch {
	case errors.Is(err, extraction.ErrJobActive):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &setupErr):
		return huma.Error422UnprocessableEntity(setupErr.Error())
	default:
		return huma.Error500InternalServerError("starting extraction failed: " + err.Error())
	}
}

// Current returns the most recent job's status.
func (h *ExtractionHandler) Current(_ context.Context, _ *struct{}) (*JobStatusOutput, error) {
	job, ok := h.manager.Current()
	if !ok {
		return nil, huma.Error404NotFound("no extraction has been started")
	}
	return &JobStatusOutput{Body: job.Status()}, nil
}

// Status returns a job's status by ID.
func (h *ExtractionHandler) Status(_ context.Context, input *JobIDInput) (*JobStatusOutput, error) {
	job, err := h.lookup(input.ID)
	if err != nil {
		return nil, err
	}
	return &JobStatusOutput{Body: job.Status()}, nil
}

// Pause asks the job to pause before its next combination.
func (h *ExtractionHandler) Pause(_ context.Context, input *JobIDInput) (*JobStatusOutput, error) {
	job, err := h.active(input.ID)
	if err != nil {
		return nil, err
	}
	job.RequestPause()
	return &JobStatusOutput{Body: job.Status()}, nil
}

// Resume clears a pause request.
func (h *ExtractionHandler) Resume(_ context.Context, input *JobIDInput) (*JobStatusOutput, error) {
	job, err := h.active(input.ID)
	if err != nil {
		return nil, err
	}
	job.RequestResume()
	return &JobStatusOutput{Body: job.Status()}, nil
}

// Tables returns the raw and pivoted tables. While the job runs they are
// built from the results collected so far.
func (h *ExtractionHandler) Tables(_ context.Context, input *JobIDInput) (*TablesOutput, error) {
	job, err := h.lookup(input.ID)
	if err != nil {
		return nil, err
	}

	resp := &TablesOutput{}
	resp.Body.JobID = job.ID
	resp.Body.State = job.State()

	if t := job.Tables(); t != nil {
		resp.Body.Tables = *t
		resp.Body.Complete = true
		return resp, nil
	}

	resp.Body.Tables = aggregate.Build(job.ProductName, job.OptionNames(), job.Results())
	return resp, nil
}

// Download returns a finished job's table as CSV.
func (h *ExtractionHandler) Download(_ context.Context, input *DownloadInput) (*DownloadOutput, error) {
	job, err := h.lookup(input.ID)
	if err != nil {
		return nil, err
	}

	tables := job.Tables()
	if tables == nil {
		return nil, huma.Error409Conflict("extraction is still " + string(job.State()))
	}

	rawName, pivotName := aggregate.FileNames(job.ProductName)
	table, name := tables.Raw, rawName
	if input.Kind == "formatted" {
		table, name = tables.Pivot, pivotName
	}

	var buf bytes.Buffer
	if err := aggregate.WriteCSV(&buf, table); err != nil {
		return nil, huma.Error500InternalServerError("rendering CSV failed: " + err.Error())
	}

	return &DownloadOutput{
		ContentType:        "text/csv; charset=utf-8",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
		Body:               buf.Bytes(),
	}, nil
}

func (h *ExtractionHandler) lookup(id string) (*extraction.Job, error) {
	job, err := h.manager.Get(id)
	if err != nil {
		return nil, huma.Error404NotFound("extraction job not found")
	}
	return job, nil
}

func (h *ExtractionHandler) active(id string) (*extraction.Job, error) {
	job, err := h.lookup(id)
	if err != nil {
		return nil, err
	}
	if job.State().Terminal() {
		return nil, huma.Error409Conflict("extraction already " + string(job.State()))
	}
	return job, nil
}

// RegisterExtractionRoutes registers extraction control endpoints with the
// Huma API.
func RegisterExtractionRoutes(api huma.API, h *ExtractionHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-extraction",
		Method:        http.MethodPost,
		Path:          "/api/v1/extractions",
		Summary:       "Start an extraction",
		Description:   "Validates the product analysis, applies exclusions and starts pricing every combination.",
		Tags:          []string{"extractions"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusConflict, http.StatusUnprocessableEntity},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "get-current-extraction",
		Method:      http.MethodGet,
		Path:        "/api/v1/extractions/current",
		Summary:     "Get the current extraction",
		Description: "Returns the status of the most recently started extraction.",
		Tags:        []string{"extractions"},
		Errors:      []int{http.StatusNotFound},
	}, h.Current)

	huma.Register(api, huma.Operation{
		OperationID: "get-extraction",
		Method:      http.MethodGet,
		Path:        "/api/v1/extractions/{id}",
		Summary:     "Get extraction status",
		Tags:        []string{"extractions"},
		Errors:      []int{http.StatusNotFound},
	}, h.Status)

	huma.Register(api, huma.Operation{
		OperationID: "pause-extraction",
		Method:      http.MethodPost,
		Path:        "/api/v1/extractions/{id}/pause",
		Summary:     "Pause an extraction",
		Description: "The job pauses before its next combination. Idempotent.",
		Tags:        []string{"extractions"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, h.Pause)

	huma.Register(api, huma.Operation{
		OperationID: "resume-extraction",
		Method:      http.MethodPost,
		Path:        "/api/v1/extractions/{id}/resume",
		Summary:     "Resume an extraction",
		Description: "Continues with the next unprocessed combination. Idempotent.",
		Tags:        []string{"extractions"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, h.Resume)

	huma.Register(api, huma.Operation{
		OperationID: "get-extraction-tables",
		Method:      http.MethodGet,
		Path:        "/api/v1/extractions/{id}/tables",
		Summary:     "Get extraction tables",
		Description: "Returns the raw and pivoted price tables as JSON.",
		Tags:        []string{"extractions"},
		Errors:      []int{http.StatusNotFound},
	}, h.Tables)

	huma.Register(api, huma.Operation{
		OperationID: "download-extraction",
		Method:      http.MethodGet,
		Path:        "/api/v1/extractions/{id}/download/{kind}",
		Summary:     "Download extraction CSV",
		Description: "Returns the raw or formatted table of a finished extraction as CSV.",
		Tags:        []string{"extractions"},
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, h.Download)
}
