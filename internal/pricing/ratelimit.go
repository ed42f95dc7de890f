package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyLimitReached is returned once the day's vendor call budget is
// spent. It is not retried.
var ErrDailyLimitReached = errors.New("daily vendor call budget reached")

// budgetDay is the length of one budget period. Periods start at midnight
// UTC, matching how the vendor meters API usage.
const budgetDay = 24 * time.Hour

// RateLimiter paces computePrice calls with a token bucket and enforces a
// per-day call budget. A budget of zero disables the daily ceiling.
type RateLimiter struct {
	pace   *rate.Limiter
	budget int64
	clock  func() time.Time

	mu    sync.Mutex
	day   time.Time
	spent int64
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterClock replaces time.Now, for tests.
func WithLimiterClock(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.clock = f
	}
}

// NewRateLimiter creates a limiter allowing perSecond calls with the given
// burst and at most budget calls per UTC day. A non-positive perSecond
// leaves pacing to the extraction request delay.
func NewRateLimiter(perSecond float64, burst int, budget int64, opts ...RateLimiterOption) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	r := &RateLimiter{
		pace:   rate.NewLimiter(limit, max(burst, 1)),
		budget: budget,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.day = startOfDay(r.clock())
	return r
}

// Wait takes one call from today's budget, then blocks until the token
// bucket admits it. A call abandoned because ctx ended is given back.
func (r *RateLimiter) Wait(ctx context.Context) error {
	day, err := r.reserve()
	if err != nil {
		return err
	}
	if err := r.pace.Wait(ctx); err != nil {
		r.refund(day)
		return fmt.Errorf("waiting for vendor rate limit: %w", err)
	}
	return nil
}

// reserve takes one call from the current budget day and returns that day.
func (r *RateLimiter) reserve() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollover()
	if r.budget > 0 && r.spent >= r.budget {
		return time.Time{}, fmt.Errorf("%w (%d/%d, resets %s)",
			ErrDailyLimitReached, r.spent, r.budget, r.day.Add(budgetDay).Format(time.RFC3339))
	}
	r.spent++
	return r.day, nil
}

// refund gives back a reservation made on day. A reservation from a day that
// has since rolled over was never counted against the current one.
func (r *RateLimiter) refund(day time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if day.Equal(r.day) && r.spent > 0 {
		r.spent--
	}
}

// rollover starts a new budget day once the clock passes midnight UTC.
// Callers hold mu.
func (r *RateLimiter) rollover() {
	if today := startOfDay(r.clock()); today.After(r.day) {
		r.day = today
		r.spent = 0
	}
}

// DailyCount returns the calls taken from today's budget.
func (r *RateLimiter) DailyCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover()
	return r.spent
}

// MaxDaily returns the configured budget, zero when unlimited.
func (r *RateLimiter) MaxDaily() int64 {
	return r.budget
}

// Remaining returns the calls left today, or -1 when the budget is disabled.
func (r *RateLimiter) Remaining() int64 {
	if r.budget <= 0 {
		return -1
	}
	return max(r.budget-r.DailyCount(), 0)
}

// ResetAt returns the next midnight UTC.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover()
	return r.day.Add(budgetDay)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
