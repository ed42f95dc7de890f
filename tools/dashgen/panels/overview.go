package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func probeStat(title, description, metric string) *stat.PanelBuilder {
	return gaugeStat(title, description, metric).
		Thresholds(ThresholdsRedGreen(1)).
		TextMode(common.BigValueTextModeValue)
}

// HealthzStat shows the liveness probe result.
func HealthzStat() *stat.PanelBuilder {
	return probeStat("Healthz", "Health check status (1 = ok, 0 = failing)", "ppm_healthz_up")
}

// ReadyzStat shows the readiness probe result. Without a database it is
// always 1.
func ReadyzStat() *stat.PanelBuilder {
	return probeStat("Readyz", "Readiness check status (1 = ready, 0 = not ready)", "ppm_readyz_up")
}

// ActiveJobStat is 1 while an extraction job is running or paused.
func ActiveJobStat() *stat.PanelBuilder {
	return gaugeStat("Extraction Running", "1 while an extraction job is active", jobScoped("ppm_job_active")).
		Thresholds(ThresholdsGreenOnly()).
		TextMode(common.BigValueTextModeValue)
}

// UptimeStat shows time since process start.
func UptimeStat() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Uptime").
		Description("Time since process start").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(fmt.Sprintf(`time() - %s`, jobScoped("process_start_time_seconds")), "", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}
