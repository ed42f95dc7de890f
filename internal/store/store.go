// Package store defines the datastore abstraction for print-price-matrix.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// RunQuery defines optional filters for run history queries.
type RunQuery struct {
	ProductID   *string
	ProductName *string // case-insensitive substring
	State       *string
	Since       *time.Time
	Limit       int // default 50
	Offset      int
	OrderBy     string // "started_at", "success_rate", "total_combinations"
}

// Store defines all data access operations for print-price-matrix.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, summary *domain.ExtractionSummary, results []domain.PriceResult) error
	GetRun(ctx context.Context, id string) (*domain.ExtractionSummary, error)
	ListRuns(ctx context.Context, q *RunQuery) ([]domain.ExtractionSummary, int, error)
	ListRunResults(ctx context.Context, runID string) ([]domain.PriceResult, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
