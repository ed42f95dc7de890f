package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CombinationsRate charts combinations processed and failed per minute.
func CombinationsRate() *timeseries.PanelBuilder {
	return series("Combinations / min", "Combinations processed and failed per minute", TSHeight, TSWidth).
		WithTarget(PromQuery(`ppm:combinations:rate5m * 60`, "processed", "A")).
		WithTarget(PromQuery(`ppm:combination_errors:rate5m * 60`, "errors", "B")).
		Legend(TableLegend("mean", "max"))
}

// JobDuration charts p50 and p95 wall-clock job duration.
func JobDuration() *timeseries.PanelBuilder {
	return series("Job Duration", "Wall-clock extraction job duration percentiles", TSHeight, TSWidth).
		WithTarget(PromQuery(Quantile(0.50, "ppm_job_duration_seconds"), "p50", "A")).
		WithTarget(PromQuery(Quantile(0.95, "ppm_job_duration_seconds"), "p95", "B")).
		Unit("s")
}

// JobOutcomes counts finished jobs per final state over a week.
func JobOutcomes() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Jobs (7d)").
		Description("Extraction jobs finished in the last 7 days by final state").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			fmt.Sprintf(`sum(increase(%s[7d])) by (state)`, jobScoped("ppm_jobs_total")),
			"{{state}}", "A",
		)).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeNone)
}

// SlotCollisions counts combinations where two options resolved to the
// same attribute slot.
func SlotCollisions() *stat.PanelBuilder {
	return counterStat("Slot Collisions (24h)", "Combinations where two options mapped to the same attribute slot",
		increaseOver("ppm_slot_collisions_total", "24h"), 1, 100)
}

// ProgressDropped counts events skipped for slow stream subscribers.
func ProgressDropped() *stat.PanelBuilder {
	return counterStat("Progress Events Dropped (24h)", "Events skipped because an event stream subscriber fell behind",
		increaseOver("ppm_progress_dropped_total", "24h"), 1, 50).
		ColorMode(common.BigValueColorModeValue)
}
