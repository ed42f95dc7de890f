package rules

import "fmt"

// AlertRules returns the operational alerts for price-matrix. dailyLimit is
// the vendor call budget the quota alert is measured against; the warning
// fires at 80% of it.
func AlertRules(dailyLimit int) PrometheusRule {
	warnAt := dailyLimit * 8 / 10
	return newResource("ppm-alerts", RuleGroup{Name: "ppm-alerts", Rules: []Rule{
		alert("PpmDown",
			`absent(up{job="price-matrix"})`,
			"2m", SeverityCritical,
			"Print Price Matrix is down",
			"The price-matrix job has been absent for more than 2 minutes.",
		),
		alert("PpmReadinessDown",
			`ppm_readyz_up == 0`,
			"2m", SeverityCritical,
			"Print Price Matrix readiness check is failing",
			"The readiness probe has been reporting not-ready for more than 2 minutes.",
		),
		alert("PpmHighErrorRate",
			`ppm:http_errors:rate5m / ppm:http_requests:rate5m > 0.05`,
			"5m", SeverityWarning,
			"High HTTP error rate on Print Price Matrix",
			"More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
		),
		alert("PpmPricingFailures",
			`ppm:pricing_failures:rate5m / ppm:pricing_requests:rate5m > 0.25`,
			"10m", SeverityWarning,
			"Vendor pricing failure rate is elevated",
			"More than 25% of computePrice calls have failed for 10 minutes.",
		),
		alert("PpmJobAborted",
			`increase(ppm_jobs_total{state="aborted"}[15m]) > 0`,
			"0m", SeverityWarning,
			"An extraction job aborted",
			"An extraction job ended in the aborted state. Partial results were kept.",
		),
		alert("PpmVendorQuotaHigh",
			fmt.Sprintf(`ppm_vendor_daily_usage > %d`, warnAt),
			"5m", SeverityWarning,
			"Vendor daily usage is above 80% of the budget",
			fmt.Sprintf("Daily computePrice usage has exceeded %d calls (budget is %d).", warnAt, dailyLimit),
		),
		alert("PpmVendorLimitReached",
			`increase(ppm_vendor_daily_limit_hits_total[5m]) > 0`,
			"0m", SeverityCritical,
			"Vendor daily budget has been reached",
			"The computePrice daily budget is spent. Running jobs will record errors until reset.",
		),
		alert("PpmAssistQuotaExhausted",
			`increase(ppm_assist_requests_total{outcome="quota"}[15m]) > 0`,
			"0m", SeverityInfo,
			"A mapping-assist provider ran out of quota",
			"At least one assist provider reported quota exhaustion; the ring moved on to the next provider.",
		),
		alert("PpmNotificationFailures",
			`increase(ppm_notification_failures_total[5m]) > 0`,
			"1m", SeverityWarning,
			"Notification delivery failures detected",
			"One or more job-completion notifications (Discord webhooks) have failed to send.",
		),
	}})
}
