package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded notifications. It is
// used when Discord (or another notification backend) is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards notifications with a log
// message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// NotifyRunComplete logs and discards a run summary.
func (n *NoOpNotifier) NotifyRunComplete(_ context.Context, summary *domain.ExtractionSummary) error {
	n.log.Debug("notification discarded (no backend configured)",
		"job_id", summary.JobID,
		"product", summary.ProductName,
		"state", summary.State,
	)
	return nil
}
