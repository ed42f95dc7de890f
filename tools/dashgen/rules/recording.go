package rules

// RecordingRules returns the pre-computed rates used by the overview
// dashboard and the ratio alerts.
func RecordingRules() PrometheusRule {
	return newResource("ppm-recording-rules", RuleGroup{
		Name:     "ppm-recording",
		Interval: "1m",
		Rules: []Rule{
			record("ppm:http_requests:rate5m",
				`sum(rate(ppm_http_requests_total[5m]))`),
			record("ppm:http_errors:rate5m",
				`sum(rate(ppm_http_requests_total{status=~"5.."}[5m]))`),
			record("ppm:pricing_requests:rate5m",
				`sum(rate(ppm_pricing_requests_total[5m]))`),
			record("ppm:pricing_failures:rate5m",
				`sum(rate(ppm_pricing_requests_total{outcome!="success"}[5m]))`),
			record("ppm:combinations:rate5m",
				`sum(rate(ppm_combinations_processed_total[5m]))`),
			record("ppm:combination_errors:rate5m",
				`sum(rate(ppm_combination_errors_total[5m]))`),
			record("ppm:notification_duration:p95_5m",
				`histogram_quantile(0.95, sum(rate(ppm_notification_duration_seconds_bucket[5m])) by (le))`),
		},
	})
}
