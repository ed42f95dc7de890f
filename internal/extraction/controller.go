// Package extraction drives extraction jobs: it walks every combination of a
// product's options, prices each one, and tolerates per-combination failure.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	"github.com/donaldgifford/print-price-matrix/internal/pricing"
	"github.com/donaldgifford/print-price-matrix/pkg/combo"
	"github.com/donaldgifford/print-price-matrix/pkg/resolve"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const (
	defaultProgressEvery = 25
	defaultRequestDelay  = 20 * time.Millisecond
)

// Pricer prices a single slot payload.
type Pricer interface {
	Price(ctx context.Context, productID string, payload domain.SlotPayload) (*pricing.Quote, error)
}

// ProgressFunc receives progress notifications on the worker goroutine. It
// must not block.
type ProgressFunc func(domain.Progress)

// Controller runs the per-combination loop of a job.
type Controller struct {
	pricer        Pricer
	resolver      *resolve.Resolver
	log           *slog.Logger
	requestDelay  time.Duration
	progressEvery int
	now           func() time.Time
}

// ControllerOption configures the Controller.
type ControllerOption func(*Controller)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = l
	}
}

// WithRequestDelay sets the pause between pricing calls.
func WithRequestDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.requestDelay = d
	}
}

// WithProgressEvery sets the progress cadence in combinations.
func WithProgressEvery(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.progressEvery = n
		}
	}
}

// WithResolver overrides the attribute resolver.
func WithResolver(r *resolve.Resolver) ControllerOption {
	return func(c *Controller) {
		c.resolver = r
	}
}

// WithClock overrides the time source for result timestamps.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a Controller.
func NewController(p Pricer, opts ...ControllerOption) *Controller {
	c := &Controller{
		pricer:        p,
		resolver:      resolve.New(),
		log:           slog.Default(),
		requestDelay:  defaultRequestDelay,
		progressEvery: defaultProgressEvery,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolver returns the controller's attribute resolver.
func (c *Controller) Resolver() *resolve.Resolver {
	return c.resolver
}

// Run prices every combination of the job's plan in enumeration order. It
// returns only when the loop finishes or ctx is canceled; pricing failures
// are recorded on the job, never returned.
func (c *Controller) Run(ctx context.Context, job *Job, progress ProgressFunc) error {
	plan := job.plan
	report := func(processed int, msg string) {
		job.setMessage(msg)
		if progress == nil {
			return
		}
		progress(domain.Progress{
			JobID:     job.ID,
			Processed: processed,
			Total:     plan.Total,
			Message:   msg,
			State:     job.State(),
			Paused:    job.IsPaused(),
		})
	}

	job.setState(domain.JobRunning)
	report(0, "Starting extraction...")

	collisions := map[resolve.Collision]bool{}

	for comb := range combo.Enumerate(plan.Catalog) {
		blocked, err := job.gate.wait(ctx, func() {
			job.setState(domain.JobPaused)
			c.log.Info("extraction paused", "job_id", job.ID, "processed", job.processedCount())
			report(job.processedCount(), "Extraction paused - waiting for resume...")
		})
		if err != nil {
			return err
		}
		if blocked {
			job.setState(domain.JobRunning)
			c.log.Info("extraction resumed", "job_id", job.ID, "next_combination", comb.ID)
		}

		result := c.priceOne(ctx, plan, comb, collisions)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		processed := job.record(result)
		metrics.CombinationsProcessedTotal.Inc()
		if !result.Success {
			metrics.CombinationErrorsTotal.Inc()
		}

		if processed == 1 || processed%c.progressEvery == 0 || processed == plan.Total {
			report(processed, fmt.Sprintf("Processing combination %d/%d", processed, plan.Total))
		}

		if processed < plan.Total && c.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}
	}

	return nil
}

func (c *Controller) priceOne(
	ctx context.Context,
	plan *Plan,
	comb domain.Combination,
	seen map[resolve.Collision]bool,
) domain.PriceResult {
	assign := c.resolver.Assign(comb.Selections, plan.Mappings)
	for _, col := range assign.Collisions {
		metrics.SlotCollisionsTotal.Inc()
		if !seen[col] {
			seen[col] = true
			c.log.Warn("attribute slot collision, later option wins",
				"slot", col.Slot,
				"previous_option", col.Previous,
				"current_option", col.Current,
			)
		}
	}

	result := domain.PriceResult{
		CombinationID: comb.ID,
		ProductName:   plan.ProductName,
		Selections:    comb.Selections,
	}

	quote, err := c.pricer.Price(ctx, plan.ProductID, assign.Payload)
	result.Timestamp = c.now()
	if err != nil {
		result.Error = err.Error()
		result.Attempts = pricing.Attempts(err)
		c.log.Debug("combination failed",
			"combination_id", comb.ID,
			"outcome", pricing.OutcomeLabel(err),
			"error", err,
		)
		return result
	}

	result.Success = true
	result.Price = quote.Price
	result.TotalPrice = quote.TotalPrice
	result.UnitPrice = quote.UnitPrice
	result.Quantity = quote.Quantity
	result.Turnaround = quote.Turnaround
	result.Suspicious = quote.Suspicious
	result.Repaired = quote.Repaired
	result.Attempts = quote.Attempts

	if quote.Suspicious {
		c.log.Warn("suspicious price",
			"combination_id", comb.ID,
			"price", quote.Price,
		)
	}
	return result
}
