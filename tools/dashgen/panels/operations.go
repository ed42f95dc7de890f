package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

const day = 86400

// NotificationLatency charts p95 Discord webhook latency.
func NotificationLatency() *timeseries.PanelBuilder {
	return series("Notification Latency (p95)", "95th percentile Discord webhook latency", TSHeight, TSWidth).
		WithTarget(PromQuery(`ppm:notification_duration:p95_5m`, "p95", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(1, 5))
}

// NotificationFailures counts failed completion notifications.
func NotificationFailures() *stat.PanelBuilder {
	return counterStat("Notification Failures (24h)", "Failed job-completion notifications in the last 24 hours",
		increaseOver("ppm_notification_failures_total", "24h"), 1, 5).
		Span(TSWidth)
}

// LastRetention shows time since the last retention sweep.
func LastRetention() *stat.PanelBuilder {
	return gaugeStat("Last Retention", "Time since the last retention sweep",
		fmt.Sprintf(`time() - %s`, jobScoped("ppm_retention_last_run_timestamp"))).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(2*day, 3*day))
}

// NextRetention shows time until the next scheduled sweep.
func NextRetention() *stat.PanelBuilder {
	return gaugeStat("Next Retention", "Time until the next scheduled retention sweep",
		fmt.Sprintf(`%s - time()`, jobScoped("ppm_retention_next_run_timestamp"))).
		Unit("s").
		Thresholds(ThresholdsGreenOnly())
}

// RetentionPruned charts runs and output directories removed per day.
func RetentionPruned() *timeseries.PanelBuilder {
	return series("Retention Pruned", "Runs and output directories deleted by retention", StatHeight, TSWidth).
		WithTarget(PromQuery(increaseOver("ppm_retention_runs_pruned_total", "1d"), "runs", "A")).
		WithTarget(PromQuery(increaseOver("ppm_retention_outputs_pruned_total", "1d"), "outputs", "B")).
		DrawStyle(common.GraphDrawStyleBars)
}
