package main

import "errors"

// KnownMetrics is the set of metric names exported by print-price-matrix
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"ppm_http_request_duration_seconds": true,
	"ppm_http_requests_total":           true,
	"ppm_http_panics_total":             true,

	// Health metrics.
	"ppm_healthz_up": true,
	"ppm_readyz_up":  true,

	// Vendor pricing metrics.
	"ppm_pricing_requests_total":           true,
	"ppm_pricing_request_duration_seconds": true,
	"ppm_pricing_retries_total":            true,
	"ppm_pricing_repairs_total":            true,
	"ppm_pricing_suspicious_total":         true,
	"ppm_vendor_daily_usage":               true,
	"ppm_vendor_daily_limit_hits_total":    true,

	// Extraction metrics.
	"ppm_jobs_total":                   true,
	"ppm_job_duration_seconds":         true,
	"ppm_combinations_processed_total": true,
	"ppm_combination_errors_total":     true,
	"ppm_slot_collisions_total":        true,
	"ppm_job_active":                   true,
	"ppm_progress_dropped_total":       true,

	// Mapping assist metrics.
	"ppm_assist_requests_total":   true,
	"ppm_assist_cache_hits_total": true,

	// Notification and retention metrics.
	"ppm_notification_failures_total":    true,
	"ppm_notification_duration_seconds":  true,
	"ppm_retention_runs_pruned_total":    true,
	"ppm_retention_outputs_pruned_total": true,
	"ppm_retention_last_run_timestamp":   true,
	"ppm_retention_next_run_timestamp":   true,

	// Recording rules.
	"ppm:http_requests:rate5m":         true,
	"ppm:http_errors:rate5m":           true,
	"ppm:pricing_requests:rate5m":      true,
	"ppm:pricing_failures:rate5m":      true,
	"ppm:combinations:rate5m":          true,
	"ppm:combination_errors:rate5m":    true,
	"ppm:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
	DailyLimit       int
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
		DailyLimit:       5000,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	if c.DailyLimit <= 0 {
		return errors.New("daily limit must be positive")
	}
	return nil
}
