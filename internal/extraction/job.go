package extraction

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/print-price-matrix/internal/aggregate"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// Job is the handle for one extraction run. Counters are written only by the
// worker goroutine; pause control and Status may be called from anywhere.
type Job struct {
	ID          string
	ProductName string
	ProductID   string
	StartedAt   time.Time

	plan    *Plan
	gate    *pauseGate
	results *aggregate.Collector
	done    chan struct{}

	mu          sync.RWMutex
	state       domain.JobState
	processed   int
	errorCount  int
	lastMessage string
	summary     *domain.ExtractionSummary
	tables      *aggregate.Tables
}

func newJob(plan *Plan, now time.Time) *Job {
	return &Job{
		ID:          uuid.NewString(),
		ProductName: plan.ProductName,
		ProductID:   plan.ProductID,
		StartedAt:   now,
		plan:        plan,
		gate:        newPauseGate(),
		results:     aggregate.NewCollector(plan.Total),
		done:        make(chan struct{}),
		state:       domain.JobEnumerating,
	}
}

// RequestPause asks the worker to pause before its next combination.
func (j *Job) RequestPause() {
	j.gate.request()
}

// RequestResume clears a pause request. The worker continues with the next
// unconsumed combination.
func (j *Job) RequestResume() {
	j.gate.release()
}

// IsPaused reports whether the worker is currently blocked on a pause.
func (j *Job) IsPaused() bool {
	return j.gate.isPaused()
}

// Done is closed once the job has finished, been exported and persisted.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// State returns the current state.
func (j *Job) State() domain.JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Total returns the number of combinations the job will price.
func (j *Job) Total() int {
	return j.plan.Total
}

// OptionNames returns the retained option names in enumeration order.
func (j *Job) OptionNames() []string {
	return j.plan.Catalog.Names()
}

// Results returns a copy of the results collected so far.
func (j *Job) Results() []domain.PriceResult {
	return j.results.Results()
}

// Summary returns the final summary, or nil while the job is running.
func (j *Job) Summary() *domain.ExtractionSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.summary
}

// Tables returns the aggregated tables, or nil while the job is running.
func (j *Job) Tables() *aggregate.Tables {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.tables
}

// Status returns a point-in-time snapshot.
func (j *Job) Status() domain.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return domain.JobStatus{
		JobID:             j.ID,
		ProductName:       j.ProductName,
		State:             j.state,
		TotalCombinations: j.plan.Total,
		Processed:         j.processed,
		ErrorCount:        j.errorCount,
		PauseRequested:    j.gate.isRequested(),
		Paused:            j.gate.isPaused(),
		LastMessage:       j.lastMessage,
		StartedAt:         j.StartedAt,
		Summary:           j.summary,
	}
}

func (j *Job) setState(s domain.JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) setMessage(msg string) {
	j.mu.Lock()
	j.lastMessage = msg
	j.mu.Unlock()
}

// record appends a result and returns the new processed count.
func (j *Job) record(r domain.PriceResult) int {
	j.results.Add(r)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed++
	if !r.Success {
		j.errorCount++
	}
	return j.processed
}

func (j *Job) processedCount() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.processed
}

func (j *Job) finish(summary *domain.ExtractionSummary, tables *aggregate.Tables) {
	j.mu.Lock()
	j.state = summary.State
	j.summary = summary
	j.tables = tables
	j.mu.Unlock()
}
