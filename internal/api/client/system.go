package client

import (
	"context"
	"time"

	"github.com/donaldgifford/print-price-matrix/pkg/assist"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// Quota is the vendor call budget reported by GET /api/v1/quota.
type Quota struct {
	Limited    bool      `json:"limited"`
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// SystemState mirrors GET /api/v1/system/state.
type SystemState struct {
	JobActive       bool                   `json:"job_active"`
	CurrentJob      *domain.JobStatus      `json:"current_job,omitempty"`
	HistoryEnabled  bool                   `json:"history_enabled"`
	AssistEnabled   bool                   `json:"assist_enabled"`
	AssistProviders []assist.ProviderUsage `json:"assist_providers"`
}

// RetentionResult is the outcome of a manual retention sweep.
type RetentionResult struct {
	Status     string `json:"status"`
	RunsPruned int    `json:"runs_pruned"`
}

// GetQuota returns today's vendor budget usage.
func (c *Client) GetQuota(ctx context.Context) (*Quota, error) {
	var q Quota
	if err := c.get(ctx, "/api/v1/quota", &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetSystemState returns job, history and assist status.
func (c *Client) GetSystemState(ctx context.Context) (*SystemState, error) {
	var st SystemState
	if err := c.get(ctx, "/api/v1/system/state", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// RunRetention triggers a retention sweep and waits for it to finish. A
// sweep already in progress is reported as a conflict.
func (c *Client) RunRetention(ctx context.Context) (*RetentionResult, error) {
	var res RetentionResult
	if err := c.post(ctx, "/api/v1/jobs/retention/run", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
