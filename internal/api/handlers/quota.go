package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// QuotaSource reports the vendor call budget.
type QuotaSource interface {
	MaxDaily() int64
	DailyCount() int64
	Remaining() int64
	ResetAt() time.Time
}

// QuotaHandler provides the vendor pricing quota endpoint.
type QuotaHandler struct {
	src QuotaSource
}

// NewQuotaHandler creates a new QuotaHandler. src may be nil when no budget
// is tracked.
func NewQuotaHandler(src QuotaSource) *QuotaHandler {
	return &QuotaHandler{src: src}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		Limited    bool      `json:"limited"               doc:"False when no daily budget is configured"`
		DailyLimit int64     `json:"daily_limit"           example:"5000"                 doc:"Configured daily computePrice budget"`
		DailyUsed  int64     `json:"daily_used"            example:"142"                  doc:"Calls made today (UTC)"`
		Remaining  int64     `json:"remaining"             example:"4858"                 doc:"Calls left today"`
		ResetAt    time.Time `json:"reset_at,omitzero"     example:"2026-06-16T00:00:00Z" doc:"Next midnight UTC, when the budget resets"`
	}
}

// GetQuota returns the current vendor call budget status.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.src == nil {
		return resp, nil
	}

	resp.Body.DailyLimit = h.src.MaxDaily()
	resp.Body.DailyUsed = h.src.DailyCount()
	resp.Body.Limited = resp.Body.DailyLimit > 0
	if resp.Body.Limited {
		resp.Body.Remaining = h.src.Remaining()
		resp.Body.ResetAt = h.src.ResetAt()
	}

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota",
		Summary:     "Get vendor pricing quota",
		Description: "Returns computePrice usage against the daily budget and the window reset time.",
		Tags:        []string{"vendor"},
	}, h.GetQuota)
}
