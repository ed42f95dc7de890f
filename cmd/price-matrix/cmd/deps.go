package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/print-price-matrix/internal/config"
	"github.com/donaldgifford/print-price-matrix/internal/extraction"
	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	"github.com/donaldgifford/print-price-matrix/internal/notify"
	"github.com/donaldgifford/print-price-matrix/internal/pricing"
	"github.com/donaldgifford/print-price-matrix/pkg/assist"
)

// newPricer builds the vendor pricing client from config.
func newPricer(cfg *config.Config, log *slog.Logger) *pricing.Client {
	v := cfg.Vendor
	hc := &http.Client{
		Timeout:   v.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return pricing.New(
		pricing.WithBaseURL(v.BaseURL),
		pricing.WithWebsiteCode(v.WebsiteCode),
		pricing.WithAuthHeader(v.AuthHeader),
		pricing.WithUserAgent(v.UserAgent),
		pricing.WithReferer(v.Referer),
		pricing.WithHTTPClient(hc),
		pricing.WithRetry(cfg.Extraction.MaxAttempts, cfg.Extraction.RetryPause),
		pricing.WithSuspiciousPrice(cfg.Extraction.SuspiciousPrice),
		pricing.WithRateLimiter(pricing.NewRateLimiter(
			v.RateLimit.PerSecond,
			v.RateLimit.Burst,
			v.RateLimit.DailyLimit,
		)),
		pricing.WithLogger(log),
	)
}

// newController builds the per-combination loop around the pricer.
func newController(cfg *config.Config, p extraction.Pricer, log *slog.Logger) *extraction.Controller {
	return extraction.NewController(p,
		extraction.WithLogger(log),
		extraction.WithRequestDelay(cfg.Extraction.RequestDelay),
		extraction.WithProgressEvery(cfg.Extraction.ProgressEvery),
	)
}

// newNotifier returns the Discord notifier when enabled, a logging no-op
// otherwise.
func newNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	if cfg.Notifications.Discord.Enabled {
		return notify.NewDiscordNotifier(cfg.Notifications.Discord.WebhookURL)
	}
	return notify.NewNoOpNotifier(log)
}

// newAdvisor builds the AI mapping advisor from the configured provider
// ring. It returns nil when assist is disabled. The returned cleanup closes
// provider clients.
func newAdvisor(ctx context.Context, cfg *config.Config, log *slog.Logger) (*assist.Advisor, func(), error) {
	noop := func() {}
	if !cfg.Assist.Enabled {
		return nil, noop, nil
	}

	var (
		providers []assist.Provider
		closers   []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("closing assist provider", "error", err)
			}
		}
	}

	for _, pc := range cfg.Assist.Providers {
		switch pc.Kind {
		case "anthropic":
			opts := []assist.AnthropicOption{
				assist.WithAnthropicName(pc.Name),
				assist.WithAnthropicModel(pc.Model),
			}
			if pc.APIKey != "" {
				opts = append(opts, assist.WithAnthropicAPIKey(pc.APIKey))
			}
			if pc.Endpoint != "" {
				opts = append(opts, assist.WithAnthropicEndpoint(pc.Endpoint))
			}
			providers = append(providers, assist.NewAnthropicProvider(opts...))
		case "openai_compat":
			opts := []assist.OpenAICompatOption{assist.WithOpenAICompatName(pc.Name)}
			if pc.APIKey != "" {
				opts = append(opts, assist.WithOpenAICompatAPIKey(pc.APIKey))
			}
			providers = append(providers, assist.NewOpenAICompatProvider(pc.Endpoint, pc.Model, opts...))
		case "gemini":
			gp, err := assist.NewGeminiProvider(ctx, pc.Name, pc.Model, pc.APIKey)
			if err != nil {
				cleanup()
				return nil, noop, fmt.Errorf("assist provider %s: %w", pc.Name, err)
			}
			providers = append(providers, gp)
			closers = append(closers, gp.Close)
		default:
			cleanup()
			return nil, noop, fmt.Errorf("assist provider %s: unknown kind %q", pc.Name, pc.Kind)
		}
	}

	ring := assist.NewRing(providers,
		assist.WithRetry(cfg.Assist.MaxAttempts, cfg.Assist.RetryPause),
		assist.WithTimeout(cfg.Assist.Timeout),
		assist.WithRingLogger(log),
		assist.WithRequestHook(func(provider, outcome string) {
			metrics.AssistRequestsTotal.WithLabelValues(provider, outcome).Inc()
		}),
	)

	adv, err := assist.NewAdvisor(ring, cfg.Assist.CacheSize,
		assist.WithAdvisorLogger(log),
		assist.WithCacheHitHook(metrics.AssistCacheHitsTotal.Inc),
	)
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	log.Info("mapping assist enabled", "providers", len(providers))
	return adv, cleanup, nil
}
