package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// ProgressSource hands out progress subscriptions.
type ProgressSource interface {
	Subscribe() (<-chan domain.Progress, func())
}

// EventsHandler streams job progress as server-sent events.
type EventsHandler struct {
	source ProgressSource
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(s ProgressSource) *EventsHandler {
	return &EventsHandler{source: s}
}

// Stream forwards progress events until the client disconnects or a job
// reaches a terminal state.
func (h *EventsHandler) Stream(ctx context.Context, _ *struct{}, send sse.Sender) {
	events, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-events:
			if !ok {
				return
			}
			if err := send.Data(p); err != nil {
				return
			}
			if p.State.Terminal() {
				return
			}
		}
	}
}

// RegisterEventRoutes registers the progress stream with the Huma API.
func RegisterEventRoutes(api huma.API, h *EventsHandler) {
	sse.Register(api, huma.Operation{
		OperationID: "stream-extraction-progress",
		Method:      http.MethodGet,
		Path:        "/api/v1/extractions/events",
		Summary:     "Stream extraction progress",
		Description: "Server-sent progress events for the active extraction. The stream ends when the job finishes.",
		Tags:        []string{"extractions"},
	}, map[string]any{
		"progress": domain.Progress{},
	}, h.Stream)
}
