// Package retention prunes old extraction runs and their output directories
// on a schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	"github.com/donaldgifford/print-price-matrix/internal/store"
)

const (
	// JobName identifies retention runs in job_runs and scheduler_locks.
	JobName = "retention"

	lockTTL        = 30 * time.Minute
	staleThreshold = 2 * time.Hour
)

// Scheduler runs retention on a fixed interval.
type Scheduler struct {
	cron      *cron.Cron
	store     store.Store
	maxAge    time.Duration
	outputDir string
	holder    string
	entryID   cron.EntryID
	now       func() time.Time
	log       *slog.Logger
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithOutputDir removes <dir>/<run id> for every pruned run.
func WithOutputDir(dir string) Option {
	return func(s *Scheduler) {
		s.outputDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// NewScheduler registers a retention entry running every interval.
func NewScheduler(
	st store.Store,
	interval time.Duration,
	maxAge time.Duration,
	opts ...Option,
) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("retention interval must be positive, got %s", interval)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive, got %s", maxAge)
	}

	s := &Scheduler{
		cron:   cron.New(),
		store:  st,
		maxAge: maxAge,
		holder: uuid.NewString(),
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	id, err := s.cron.AddFunc("@every "+interval.String(), s.runScheduled)
	if err != nil {
		return nil, fmt.Errorf("registering retention schedule: %w", err)
	}
	s.entryID = id

	return s, nil
}

// Start begins running scheduled retention.
func (s *Scheduler) Start() {
	s.log.Info("retention scheduler started", "max_age", s.maxAge)
	s.cron.Start()
	s.SyncNextRunTimestamp()
}

// Stop gracefully stops the scheduler, waiting for a running prune to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("retention scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamp publishes the next scheduled run time.
func (s *Scheduler) SyncNextRunTimestamp() {
	next := s.cron.Entry(s.entryID).Next
	if !next.IsZero() {
		metrics.RetentionNextRunTimestamp.Set(float64(next.Unix()))
	}
}

// RecoverStaleJobRuns marks retention runs left running by a crashed
// process as failed.
func (s *Scheduler) RecoverStaleJobRuns(ctx context.Context) {
	n, err := s.store.RecoverStaleJobRuns(ctx, staleThreshold)
	if err != nil {
		s.log.Error("recovering stale job runs", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("marked stale job runs as failed", "count", n)
	}
}

func (s *Scheduler) runScheduled() {
	ctx := context.Background()
	s.log.Info("scheduled retention starting")
	if err := s.runJob(ctx, JobName, lockTTL, s.Prune); err != nil && !errors.Is(err, ErrLockHeld) {
		s.log.Error("scheduled retention failed", "error", err)
	}
	s.SyncNextRunTimestamp()
}

// ErrLockHeld is returned when another instance holds the retention lock.
var ErrLockHeld = errors.New("scheduler lock held by another instance")

// RunNow performs one locked, recorded retention sweep outside the schedule
// and returns the number of runs pruned.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	var pruned int
	err := s.runJob(ctx, JobName, lockTTL, func(ctx context.Context) (int, error) {
		n, err := s.Prune(ctx)
		pruned = n
		return n, err
	})
	return pruned, err
}

// runJob wraps fn with the scheduler lock and a job_runs record.
func (s *Scheduler) runJob(
	ctx context.Context,
	name string,
	ttl time.Duration,
	fn func(context.Context) (int, error),
) error {
	ok, err := s.store.AcquireSchedulerLock(ctx, name, s.holder, ttl)
	if err != nil {
		return fmt.Errorf("acquiring %s lock: %w", name, err)
	}
	if !ok {
		s.log.Info("skipping job, lock held elsewhere", "job", name)
		return ErrLockHeld
	}
	defer func() {
		if err := s.store.ReleaseSchedulerLock(context.WithoutCancel(ctx), name, s.holder); err != nil {
			s.log.Error("releasing scheduler lock", "job", name, "error", err)
		}
	}()

	runID, err := s.store.InsertJobRun(ctx, name)
	if err != nil {
		return fmt.Errorf("recording %s start: %w", name, err)
	}

	rows, jobErr := fn(ctx)

	status, errText := "succeeded", ""
	if jobErr != nil {
		status, errText = "failed", jobErr.Error()
	}
	if err := s.store.CompleteJobRun(context.WithoutCancel(ctx), runID, status, errText, rows); err != nil {
		s.log.Error("recording job completion", "job", name, "run_id", runID, "error", err)
	}

	return jobErr
}

// Prune deletes runs older than the max age and, when an output directory
// is configured, their export directories. It returns the number of runs
// removed.
func (s *Scheduler) Prune(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)

	ids, err := s.store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.RetentionRunsPrunedTotal.Add(float64(len(ids)))

	var errs []error
	if s.outputDir != "" {
		for _, id := range ids {
			if err := s.removeOutput(id); err != nil {
				errs = append(errs, err)
			}
		}
	}

	metrics.RetentionLastRunTimestamp.Set(float64(s.now().Unix()))
	s.log.Info("retention complete", "runs_pruned", len(ids), "cutoff", cutoff)

	return len(ids), errors.Join(errs...)
}

func (s *Scheduler) removeOutput(runID string) error {
	// Run ids are UUIDs; anything else could escape the output directory.
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("refusing to remove output for run id %q", runID)
	}

	dir := filepath.Join(s.outputDir, runID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing output %s: %w", dir, err)
	}
	metrics.RetentionOutputsPrunedTotal.Inc()
	return nil
}
