package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

const httpDuration = "ppm_http_request_duration_seconds"

// RequestRate charts API requests per second, SSE streams excluded.
func RequestRate() *timeseries.PanelBuilder {
	return series("Request Rate", "HTTP requests per second", TSHeight, TSWidth).
		WithTarget(PromQuery(`ppm:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max"))
}

// LatencyPercentiles charts p50, p95 and p99 API latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	return series("Latency Percentiles", "HTTP request duration percentiles", TSHeight, TSWidth).
		WithTarget(PromQuery(Quantile(0.50, httpDuration), "p50", "A")).
		WithTarget(PromQuery(Quantile(0.95, httpDuration), "p95", "B")).
		WithTarget(PromQuery(Quantile(0.99, httpDuration), "p99", "C")).
		Unit("s").
		Legend(TableLegend("mean", "max"))
}

// ErrorRate charts 5xx responses as a percentage of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return series("Error Rate %", "HTTP 5xx error rate as percentage of total requests", TSHeight, FullWidth).
		WithTarget(PromQuery(`ppm:http_errors:rate5m / ppm:http_requests:rate5m * 100`, "error %", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
