package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/print-price-matrix/internal/aggregate"
	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const persistTimeout = 30 * time.Second

// RunRecorder persists a finished run.
type RunRecorder interface {
	SaveRun(ctx context.Context, summary *domain.ExtractionSummary, results []domain.PriceResult) error
}

// RunNotifier announces a finished run.
type RunNotifier interface {
	NotifyRunComplete(ctx context.Context, summary *domain.ExtractionSummary) error
}

// MappingAdvisor suggests slots for option names the resolver cannot place
// by name.
type MappingAdvisor interface {
	SuggestMappings(ctx context.Context, productName string, options []string) (domain.AttributeMapping, error)
}

// StartRequest is the input of a new job.
type StartRequest struct {
	Analysis   *domain.ProductAnalysis
	Exclusions domain.Exclusions
}

// Manager owns the single active job handle. A second Start while a job is
// active is rejected.
type Manager struct {
	controller  *Controller
	recorder    RunRecorder
	notifier    RunNotifier
	advisor     MappingAdvisor
	broadcaster *Broadcaster
	outputDir   string
	baseCtx     context.Context
	log         *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	current  *Job
	starting bool
	wg       sync.WaitGroup
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithRecorder persists finished runs.
func WithRecorder(r RunRecorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithNotifier announces finished runs.
func WithNotifier(n RunNotifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithMappingAdvisor enables AI-assisted slot suggestions during setup.
func WithMappingAdvisor(a MappingAdvisor) ManagerOption {
	return func(m *Manager) {
		m.advisor = a
	}
}

// WithBroadcaster publishes progress events to b.
func WithBroadcaster(b *Broadcaster) ManagerOption {
	return func(m *Manager) {
		m.broadcaster = b
	}
}

// WithOutputDir writes CSV exports under dir. Empty disables export.
func WithOutputDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.outputDir = dir
	}
}

// WithBaseContext sets the context jobs run under. Canceling it aborts the
// active job.
func WithBaseContext(ctx context.Context) ManagerOption {
	return func(m *Manager) {
		m.baseCtx = ctx
	}
}

// WithManagerLogger sets a custom logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager creates a Manager around a controller.
func NewManager(c *Controller, opts ...ManagerOption) *Manager {
	m := &Manager{
		controller: c,
		baseCtx:    context.Background(),
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start validates the request, then runs the job on its own goroutine. Setup
// failures return a *SetupError and no job is created. The lock is not held
// during setup so status and control calls stay responsive while mapping
// assist is in flight.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Job, error) {
	if err := m.reserve(); err != nil {
		return nil, err
	}

	plan, err := Prepare(req.Analysis, req.Exclusions)
	if err != nil {
		m.release()
		return nil, err
	}
	m.assist(ctx, plan)

	job := newJob(plan, m.now())

	m.mu.Lock()
	m.current = job
	m.starting = false
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info("extraction job starting",
		"job_id", job.ID,
		"product", plan.ProductName,
		"product_id", plan.ProductID,
		"total_combinations", plan.Total,
		"options", plan.Catalog.Names(),
		"excluded", plan.Report.Dropped(),
	)
	metrics.JobActive.Set(1)

	go m.run(job)

	return job, nil
}

// reserve claims the single job slot for a Start in progress.
func (m *Manager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.starting {
		return fmt.Errorf("%w: another extraction is being set up", ErrJobActive)
	}
	if m.current != nil && !m.current.State().Terminal() {
		return fmt.Errorf("%w: %s", ErrJobActive, m.current.ID)
	}
	m.starting = true
	return nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.starting = false
	m.mu.Unlock()
}

// Current returns the most recent job, if any.
func (m *Manager) Current() (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

// Get returns the job with id if it is the most recent one.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.ID != id {
		return nil, ErrJobNotFound
	}
	return m.current, nil
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// assist fills slot mappings for option names neither explicit mappings nor
// name rules resolve. Failures leave the plan unchanged.
func (m *Manager) assist(ctx context.Context, plan *Plan) {
	if m.advisor == nil {
		return
	}

	var unresolved []string
	for _, name := range plan.Catalog.Names() {
		if _, ok := m.controller.Resolver().ResolveName(name, plan.Mappings); !ok {
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) == 0 {
		return
	}

	suggested, err := m.advisor.SuggestMappings(ctx, plan.ProductName, unresolved)
	if err != nil {
		m.log.Warn("mapping assist failed", "error", err, "options", unresolved)
		return
	}
	for name, slot := range suggested {
		if _, exists := plan.Mappings[name]; !exists && slot != "" {
			plan.Mappings[name] = slot
		}
	}
	m.log.Info("mapping assist applied", "suggested", len(suggested), "unresolved", len(unresolved))
}

func (m *Manager) run(job *Job) {
	defer m.wg.Done()
	defer close(job.done)
	defer metrics.JobActive.Set(0)

	progress := func(p domain.Progress) {
		if m.broadcaster != nil {
			m.broadcaster.Publish(p)
		}
	}

	runErr := m.controller.Run(m.baseCtx, job, progress)

	summary, tables := m.summarize(job, runErr)
	job.finish(summary, tables)

	msg := fmt.Sprintf("Extraction completed: %d successful, %d errors", summary.TotalExtracted, summary.ErrorCount)
	if summary.State == domain.JobAborted {
		msg = fmt.Sprintf("Extraction aborted: %d successful, %d errors", summary.TotalExtracted, summary.ErrorCount)
	}
	job.setMessage(msg)
	progress(domain.Progress{
		JobID:     job.ID,
		Processed: summary.TotalExtracted,
		Total:     summary.TotalCombinations,
		Message:   msg,
		State:     summary.State,
	})

	metrics.JobsTotal.WithLabelValues(string(summary.State)).Inc()
	metrics.JobDuration.Observe(m.now().Sub(job.StartedAt).Seconds())

	m.log.Info("extraction job finished",
		"job_id", job.ID,
		"state", summary.State,
		"total_combinations", summary.TotalCombinations,
		"total_extracted", summary.TotalExtracted,
		"error_count", summary.ErrorCount,
		"suspicious_count", summary.SuspiciousCount,
		"success_rate", fmt.Sprintf("%.1f", summary.SuccessRate),
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.baseCtx), persistTimeout)
	defer cancel()

	if m.recorder != nil {
		if err := m.recorder.SaveRun(ctx, summary, job.Results()); err != nil {
			m.log.Error("saving run failed", "job_id", job.ID, "error", err)
		}
	}
	if m.notifier != nil {
		if err := m.notifier.NotifyRunComplete(ctx, summary); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			m.log.Error("run notification failed", "job_id", job.ID, "error", err)
		}
	}
}

func (m *Manager) summarize(job *Job, runErr error) (*domain.ExtractionSummary, *aggregate.Tables) {
	plan := job.plan
	extracted, failed, suspicious := job.results.Counts()
	completed := m.now()

	summary := &domain.ExtractionSummary{
		JobID:             job.ID,
		ProductName:       plan.ProductName,
		ProductID:         plan.ProductID,
		State:             domain.JobCompleted,
		TotalCombinations: plan.Total,
		TotalExtracted:    extracted,
		ErrorCount:        failed,
		SuspiciousCount:   suspicious,
		SuccessRate:       domain.SuccessRate(extracted, plan.Total),
		OptionsUsed:       plan.Catalog.Names(),
		OptionsExcluded:   plan.Report.Dropped(),
		StartedAt:         job.StartedAt,
		CompletedAt:       &completed,
	}
	if runErr != nil {
		summary.State = domain.JobAborted
		summary.Error = runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			summary.Error = "canceled"
		}
	}

	tables := aggregate.Build(plan.ProductName, plan.Catalog.Names(), job.Results())

	if m.outputDir != "" {
		paths, err := aggregate.Export(m.outputDir, job.ID, plan.ProductName, tables)
		if err != nil {
			m.log.Error("exporting tables failed", "job_id", job.ID, "error", err)
		} else {
			summary.RawPath = paths.Raw
			summary.PivotPath = paths.Pivot
		}
	}

	return summary, &tables
}
