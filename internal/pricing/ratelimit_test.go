package pricing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/pricing"
)

// fakeClock is a settable time source safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestRateLimiter_Budget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		budget    int64
		calls     int
		wantOK    int
		wantSpent int64
		wantLeft  int64
	}{
		{name: "within budget", budget: 5, calls: 3, wantOK: 3, wantSpent: 3, wantLeft: 2},
		{name: "exactly spent", budget: 2, calls: 2, wantOK: 2, wantSpent: 2, wantLeft: 0},
		{name: "refused past budget", budget: 2, calls: 4, wantOK: 2, wantSpent: 2, wantLeft: 0},
		{name: "unlimited", budget: 0, calls: 40, wantOK: 40, wantSpent: 40, wantLeft: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rl := pricing.NewRateLimiter(0, 1, tt.budget)

			ok := 0
			for range tt.calls {
				err := rl.Wait(t.Context())
				if err != nil {
					require.ErrorIs(t, err, pricing.ErrDailyLimitReached)
					continue
				}
				ok++
			}

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSpent, rl.DailyCount())
			assert.Equal(t, tt.wantLeft, rl.Remaining())
			assert.Equal(t, tt.budget, rl.MaxDaily())
		})
	}
}

func TestRateLimiter_ResetsAtMidnightUTC(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 2, 23, 58, 0, 0, time.UTC)}
	rl := pricing.NewRateLimiter(0, 1, 2, pricing.WithLimiterClock(clock.Now))

	require.NoError(t, rl.Wait(t.Context()))
	require.NoError(t, rl.Wait(t.Context()))
	err := rl.Wait(t.Context())
	require.ErrorIs(t, err, pricing.ErrDailyLimitReached)
	assert.Contains(t, err.Error(), "resets 2026-03-03T00:00:00Z")
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), rl.ResetAt())

	// Five minutes later is a new budget day, not 24h after the first call.
	clock.Set(time.Date(2026, 3, 3, 0, 3, 0, 0, time.UTC))
	assert.Equal(t, int64(0), rl.DailyCount())
	require.NoError(t, rl.Wait(t.Context()))
	assert.Equal(t, int64(1), rl.DailyCount())
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), rl.ResetAt())
}

func TestRateLimiter_NonUTCClock(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*60*60)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 21, 0, 0, 0, est)} // 02:00 UTC on the 3rd
	rl := pricing.NewRateLimiter(0, 1, 1, pricing.WithLimiterClock(clock.Now))

	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), rl.ResetAt())
}

func TestRateLimiter_CanceledWaitRefunds(t *testing.T) {
	t.Parallel()

	rl := pricing.NewRateLimiter(0.1, 1, 5)
	require.NoError(t, rl.Wait(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := rl.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for vendor rate limit")
	assert.NotErrorIs(t, err, pricing.ErrDailyLimitReached)
	assert.Equal(t, int64(1), rl.DailyCount(), "canceled call must not consume budget")
}

func TestRateLimiter_ConcurrentCallersNeverOvershoot(t *testing.T) {
	t.Parallel()

	rl := pricing.NewRateLimiter(0, 1, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for range 25 {
		wg.Go(func() {
			if rl.Wait(context.Background()) == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
	assert.Equal(t, int64(10), rl.DailyCount())
}
