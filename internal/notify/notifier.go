// Package notify defines the notification interface and implementations
// for extraction run announcements.
package notify

import (
	"context"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// Notifier defines the interface for announcing finished extraction runs.
type Notifier interface {
	NotifyRunComplete(ctx context.Context, summary *domain.ExtractionSummary) error
}
