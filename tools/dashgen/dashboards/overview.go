// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/print-price-matrix/tools/dashgen/panels"
)

// BuildOverview constructs the Print Price Matrix overview dashboard.
// dailyLimit scales the vendor quota gauge.
func BuildOverview(dailyLimit int) *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("PPM Overview").
		Uid("ppm-overview").
		Tags([]string{"ppm", "print-price-matrix"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.ActiveJobStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Vendor Pricing").
		WithPanel(panels.PricingOutcomes()).
		WithPanel(panels.PricingLatency()).
		WithPanel(panels.RetriesAndRepairs()).
		WithPanel(panels.QuotaGauge(dailyLimit)).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Extraction").
		WithPanel(panels.CombinationsRate()).
		WithPanel(panels.JobDuration()).
		WithPanel(panels.JobOutcomes()).
		WithPanel(panels.SlotCollisions()).
		WithPanel(panels.ProgressDropped()))

	b.WithRow(dashboard.NewRowBuilder("Mapping Assist").
		WithPanel(panels.AssistRequests()).
		WithPanel(panels.AssistCacheHits()))

	b.WithRow(dashboard.NewRowBuilder("Operations").
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()).
		WithPanel(panels.LastRetention()).
		WithPanel(panels.NextRetention()).
		WithPanel(panels.RetentionPruned()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
