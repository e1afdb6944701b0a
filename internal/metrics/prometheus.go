package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/validy-app/validy/internal/certificate"
)

// Prometheus metrics
var (
	scansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validy_scans_total",
			Help: "Total number of expiration scans executed",
		},
	)
	notificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validy_notifications_sent_total",
			Help: "Total number of expiration notifications delivered",
		},
	)
	notificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validy_notifications_failed_total",
			Help: "Total number of expiration notifications that failed to deliver",
		},
	)
	notificationsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validy_notifications_skipped_total",
			Help: "Total number of notifications skipped because the certificate was already notified that day",
		},
	)
	certificatesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "validy_certificates_pending",
			Help: "Number of certificates currently in the PENDING workflow status",
		},
	)
	certificatesExpired = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "validy_certificates_expired",
			Help: "Number of certificates whose expiration date has passed",
		},
	)
)

// PrometheusReporter feeds scan outcomes into the process metrics. It
// implements certificate.ScanObserver.
type PrometheusReporter struct{}

func NewPrometheusReporter() *PrometheusReporter {
	return &PrometheusReporter{}
}

// ObserveScan records the outcome of one completed scan.
func (r *PrometheusReporter) ObserveScan(summary certificate.ScanSummary) {
	scansTotal.Inc()
	notificationsSent.Add(float64(summary.Sent))
	notificationsFailed.Add(float64(summary.Failed))
	notificationsSkipped.Add(float64(summary.Skipped))
}

// ReportCertificateCounts updates the population gauges.
func (r *PrometheusReporter) ReportCertificateCounts(pending, expired int) {
	certificatesPending.Set(float64(pending))
	certificatesExpired.Set(float64(expired))
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func (r *PrometheusReporter) Handler() http.Handler {
	return promhttp.Handler()
}
