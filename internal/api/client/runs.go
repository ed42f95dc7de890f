package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// RunFilter narrows a run listing. Zero values are omitted.
type RunFilter struct {
	ProductID   string
	ProductName string
	State       string
	Since       time.Time
	Limit       int
	Offset      int
	OrderBy     string
}

// RunList is one page of run summaries.
type RunList struct {
	Runs   []domain.ExtractionSummary `json:"runs"`
	Total  int                        `json:"total"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

func (f *RunFilter) values() url.Values {
	v := url.Values{}
	if f == nil {
		return v
	}
	if f.ProductID != "" {
		v.Set("product_id", f.ProductID)
	}
	if f.ProductName != "" {
		v.Set("product_name", f.ProductName)
	}
	if f.State != "" {
		v.Set("state", f.State)
	}
	if !f.Since.IsZero() {
		v.Set("since", f.Since.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.OrderBy != "" {
		v.Set("order_by", f.OrderBy)
	}
	return v
}

// ListRuns returns persisted run summaries.
func (c *Client) ListRuns(ctx context.Context, f *RunFilter) (*RunList, error) {
	path := "/api/v1/runs"
	if q := f.values().Encode(); q != "" {
		path += "?" + q
	}

	var list RunList
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetRun returns a persisted run summary.
func (c *Client) GetRun(ctx context.Context, id string) (*domain.ExtractionSummary, error) {
	var run domain.ExtractionSummary
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRunResults returns a persisted run's per-combination results.
func (c *Client) ListRunResults(ctx context.Context, id string) ([]domain.PriceResult, error) {
	var results []domain.PriceResult
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id)+"/results", &results); err != nil {
		return nil, err
	}
	return results, nil
}
