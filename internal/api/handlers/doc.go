// Package handlers implements the price-matrix HTTP API: extraction control,
// progress streaming, run history, vendor quota and operational triggers.
// Probes are plain Echo handlers; everything under /api/v1 is a huma
// operation so it appears in the generated OpenAPI document.
package handlers

// StatusResponse is the body of the liveness and readiness probes.
type StatusResponse struct {
	Status string `json:"status" example:"ready" doc:"ok, ready or unavailable"`
}
