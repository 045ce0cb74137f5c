package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render outcomes recorded per report generation.
const (
	OutcomeOK         = "ok"
	OutcomeDiagnostic = "diagnostic"
	OutcomeError      = "error"
)

var (
	reportsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_rendered_total",
			Help: "Total number of report renders by outcome",
		},
		[]string{"outcome"},
	)

	reportRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_render_duration_seconds",
			Help:    "Report render duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	templateValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "template_validation_failures_total",
			Help: "Total number of templates rejected by static validation",
		},
	)
)

// ObserveRender records one report render with its outcome and duration.
func ObserveRender(outcome string, d time.Duration) {
	reportsRenderedTotal.WithLabelValues(outcome).Inc()
	reportRenderDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// TemplateValidationFailed counts a template rejected before rendering.
func TemplateValidationFailed() {
	templateValidationFailures.Inc()
}
