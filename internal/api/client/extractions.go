package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/donaldgifford/print-price-matrix/internal/aggregate"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// StartRequest is the body of a start call.
type StartRequest struct {
	Analysis          *domain.ProductAnalysis `json:"analysis"`
	ExcludeOptions    []string                `json:"exclude_options,omitempty"`
	ExcludeSuboptions map[string][]string     `json:"exclude_suboptions,omitempty"`
}

// Tables is the JSON rendering of a job's tables.
type Tables struct {
	JobID    string          `json:"job_id"`
	State    domain.JobState `json:"state"`
	Complete bool            `json:"complete"`
	aggregate.Tables
}

// StartExtraction starts a job and returns its initial status.
func (c *Client) StartExtraction(ctx context.Context, req *StartRequest) (*domain.JobStatus, error) {
	var st domain.JobStatus
	if err := c.post(ctx, "/api/v1/extractions", req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// CurrentExtraction returns the most recent job's status.
func (c *Client) CurrentExtraction(ctx context.Context) (*domain.JobStatus, error) {
	var st domain.JobStatus
	if err := c.get(ctx, "/api/v1/extractions/current", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetExtraction returns a job's status.
func (c *Client) GetExtraction(ctx context.Context, id string) (*domain.JobStatus, error) {
	var st domain.JobStatus
	if err := c.get(ctx, "/api/v1/extractions/"+url.PathEscape(id), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// PauseExtraction asks a job to pause.
func (c *Client) PauseExtraction(ctx context.Context, id string) (*domain.JobStatus, error) {
	var st domain.JobStatus
	if err := c.post(ctx, "/api/v1/extractions/"+url.PathEscape(id)+"/pause", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ResumeExtraction clears a pause request.
func (c *Client) ResumeExtraction(ctx context.Context, id string) (*domain.JobStatus, error) {
	var st domain.JobStatus
	if err := c.post(ctx, "/api/v1/extractions/"+url.PathEscape(id)+"/resume", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ExtractionTables returns a job's tables.
func (c *Client) ExtractionTables(ctx context.Context, id string) (*Tables, error) {
	var t Tables
	if err := c.get(ctx, "/api/v1/extractions/"+url.PathEscape(id)+"/tables", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DownloadExtraction returns a finished job's CSV and its suggested file
// name. kind is "raw" or "formatted".
func (c *Client) DownloadExtraction(ctx context.Context, id, kind string) ([]byte, string, error) {
	path := fmt.Sprintf("/api/v1/extractions/%s/download/%s", url.PathEscape(id), url.PathEscape(kind))
	body, header, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}

	name := id + "_" + kind + ".csv"
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return body, name, nil
}
