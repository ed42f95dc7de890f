package assist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Outcome labels passed to the request hook.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeQuota   = "quota"
)

// ProviderUsage is a snapshot of one provider's call history.
type ProviderUsage struct {
	Name      string    `json:"name"`
	Requests  int       `json:"requests"`
	Errors    int       `json:"errors"`
	Exhausted bool      `json:"exhausted"`
	LastUsed  time.Time `json:"last_used,omitzero"`
}

type ringEntry struct {
	provider Provider
	usage    ProviderUsage
}

// Ring sends requests to the current provider and rotates to the next
// non-exhausted one when it fails. A provider that reports
// ErrQuotaExceeded stays out of rotation for the ring's lifetime.
type Ring struct {
	mu      sync.Mutex
	entries []*ringEntry
	current int

	maxAttempts int
	retryPause  time.Duration
	timeout     time.Duration
	onRequest   func(provider, outcome string)
	log         *slog.Logger
}

// RingOption configures a Ring.
type RingOption func(*Ring)

// WithRetry sets the per-provider attempt count and the initial backoff
// interval between attempts.
func WithRetry(maxAttempts int, pause time.Duration) RingOption {
	return func(r *Ring) {
		r.maxAttempts = maxAttempts
		r.retryPause = pause
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) RingOption {
	return func(r *Ring) {
		r.timeout = d
	}
}

// WithRequestHook registers a callback invoked after every provider call.
func WithRequestHook(fn func(provider, outcome string)) RingOption {
	return func(r *Ring) {
		r.onRequest = fn
	}
}

// WithRingLogger sets the logger.
func WithRingLogger(l *slog.Logger) RingOption {
	return func(r *Ring) {
		r.log = l
	}
}

// NewRing creates a ring over providers in the given order.
func NewRing(providers []Provider, opts ...RingOption) *Ring {
	r := &Ring{
		entries:     make([]*ringEntry, 0, len(providers)),
		maxAttempts: 2,
		retryPause:  time.Second,
		timeout:     30 * time.Second,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, p := range providers {
		r.entries = append(r.entries, &ringEntry{
			provider: p,
			usage:    ProviderUsage{Name: p.Name()},
		})
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

// Generate tries each non-exhausted provider once around the ring, starting
// at the current one, with retries per provider. The provider that answers
// becomes current.
func (r *Ring) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var errs []error
	for range len(r.entries) {
		idx, entry, ok := r.pick()
		if !ok {
			break
		}

		out, err := r.call(ctx, entry, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		errs = append(errs, fmt.Errorf("%s: %w", entry.provider.Name(), err))
		r.advance(idx)
	}

	if r.allExhausted() {
		return "", errors.Join(append([]error{ErrAllProvidersExhausted}, errs...)...)
	}
	if len(errs) == 0 {
		return "", ErrAllProvidersExhausted
	}
	return "", errors.Join(errs...)
}

// Usage returns a snapshot of every provider's call history in ring order.
func (r *Ring) Usage() []ProviderUsage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ProviderUsage, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.usage
	}
	return out
}

// Current returns the name of the provider the next call starts with, or ""
// when all are exhausted.
func (r *Ring) Current() string {
	_, e, ok := r.pick()
	if !ok {
		return ""
	}
	return e.provider.Name()
}

func (r *Ring) call(ctx context.Context, entry *ringEntry, req GenerateRequest) (string, error) {
	name := entry.provider.Name()

	op := func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		out, err := entry.provider.Generate(callCtx, req)
		r.record(entry, err)
		switch {
		case err == nil:
			r.hook(name, OutcomeSuccess)
			return out, nil
		case errors.Is(err, ErrQuotaExceeded):
			r.hook(name, OutcomeQuota)
			r.log.Warn("assist provider exhausted", "provider", name, "error", err)
			return "", backoff.Permanent(err)
		default:
			r.hook(name, OutcomeError)
			return "", err
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.retryPause

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(r.maxAttempts)),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.log.Debug("retrying assist provider", "provider", name, "error", err, "backoff", d)
		}),
	)
}

func (r *Ring) record(entry *ringEntry, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.usage.Requests++
	entry.usage.LastUsed = time.Now()
	if err != nil {
		entry.usage.Errors++
		if errors.Is(err, ErrQuotaExceeded) {
			entry.usage.Exhausted = true
		}
	}
}

// pick returns the first non-exhausted entry at or after current.
func (r *Ring) pick() (int, *ringEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	for i := range n {
		idx := (r.current + i) % n
		if !r.entries[idx].usage.Exhausted {
			r.current = idx
			return idx, r.entries[idx], true
		}
	}
	return 0, nil, false
}

func (r *Ring) advance(from int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == from && len(r.entries) > 0 {
		r.current = (from + 1) % len(r.entries)
	}
}

func (r *Ring) allExhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if !e.usage.Exhausted {
			return false
		}
	}
	return true
}

func (r *Ring) hook(provider, outcome string) {
	if r.onRequest != nil {
		r.onRequest(provider, outcome)
	}
}
