package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/gauge"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

const pricingDuration = "ppm_pricing_request_duration_seconds"

// PricingOutcomes charts computePrice calls per second by outcome.
func PricingOutcomes() *timeseries.PanelBuilder {
	return series("Pricing Calls by Outcome",
		"computePrice calls per second (success, rejected, transport, validation)", TSHeight, TSWidth).
		WithTarget(PromQuery(rateBy("ppm_pricing_requests_total", "outcome"), "{{outcome}}", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max"))
}

// PricingLatency charts p50 and p95 computePrice latency, retries included.
func PricingLatency() *timeseries.PanelBuilder {
	return series("Pricing Latency", "computePrice call duration percentiles, retries included", TSHeight, TSWidth).
		WithTarget(PromQuery(Quantile(0.50, pricingDuration), "p50", "A")).
		WithTarget(PromQuery(Quantile(0.95, pricingDuration), "p95", "B")).
		Unit("s").
		Legend(TableLegend("mean", "max"))
}

// RetriesAndRepairs charts transport retries, payload repairs and
// placeholder prices per minute.
func RetriesAndRepairs() *timeseries.PanelBuilder {
	perMinute := func(counter string) string {
		return fmt.Sprintf(`sum(rate(%s[5m])) * 60`, jobScoped(counter))
	}
	return series("Retries / Repairs / Suspicious",
		"Per-minute transport retries, invalid-attribute repairs and placeholder prices", TSHeight, 8).
		WithTarget(PromQuery(perMinute("ppm_pricing_retries_total"), "retries", "A")).
		WithTarget(PromQuery(perMinute("ppm_pricing_repairs_total"), "repairs", "B")).
		WithTarget(PromQuery(perMinute("ppm_pricing_suspicious_total"), "suspicious", "C"))
}

// QuotaGauge shows today's vendor usage as a percentage of dailyLimit.
func QuotaGauge(dailyLimit int) *gauge.PanelBuilder {
	return gauge.NewPanelBuilder().
		Title("Vendor Quota %").
		Description("Daily computePrice usage as percentage of the configured budget").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(fmt.Sprintf("ppm_vendor_daily_usage / %d * 100", dailyLimit), "", "A")).
		Unit("percent").
		Min(0).
		Max(100).
		Thresholds(ThresholdsGreenYellowRed(80, 95)).
		ColorScheme(ColorSchemeThresholds())
}

// LimitHits counts calls refused by the daily budget in the last day.
func LimitHits() *stat.PanelBuilder {
	return counterStat("Budget Hits (24h)", "Calls refused because the daily vendor budget was spent",
		increaseOver("ppm_vendor_daily_limit_hits_total", "24h"), 1, 3)
}
