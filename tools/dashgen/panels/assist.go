package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// AssistRequests charts mapping suggestions requested per provider and
// outcome.
func AssistRequests() *timeseries.PanelBuilder {
	return series("Assist Requests", "Slot-mapping suggestions requested per provider and outcome", TSHeight, 16).
		WithTarget(PromQuery(rateBy("ppm_assist_requests_total", "provider, outcome"), "{{provider}} {{outcome}}", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max"))
}

// AssistCacheHits counts suggestions served from the LRU cache.
func AssistCacheHits() *stat.PanelBuilder {
	return counterStat("Assist Cache Hits (24h)", "Suggestions served from cache without a model call",
		increaseOver("ppm_assist_cache_hits_total", "24h"), 0, 0).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		ColorMode(common.BigValueColorModeValue)
}
