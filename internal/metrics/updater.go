package metrics

import (
	"context"
	"log/slog"

	"github.com/validy-app/validy/internal/certificate"
)

// Updater recomputes the certificate population gauges from the store. Work
// is coalesced through a single-slot trigger channel so bursts of mutations
// cause at most one pending refresh.
type Updater struct {
	service  *certificate.Service
	reporter *PrometheusReporter
	trigger  chan struct{}
}

func NewUpdater(service *certificate.Service, reporter *PrometheusReporter) *Updater {
	return &Updater{
		service:  service,
		reporter: reporter,
		// buffered channel to avoid blocking and all we need to know is that "something"
		// has happened whilst we were busy
		trigger: make(chan struct{}, 1),
	}
}

func (u *Updater) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-u.trigger:
				u.UpdateMetrics()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (u *Updater) Trigger() {
	select {
	case u.trigger <- struct{}{}:
	default:
		// channel is full, so we don't need to do anything
	}
}

// UpdateMetrics counts pending and expired certificates and publishes the
// gauges.
func (u *Updater) UpdateMetrics() {
	certs, err := u.service.GetCertificates()
	if err != nil {
		slog.Error("failed to refresh certificate metrics", "err", err)
		return
	}

	pending, expired := 0, 0
	for _, cert := range certs {
		if cert.Status == certificate.StatusPending {
			pending++
		}
		if certificate.ComputeStatus(cert.ExpiresAt) == certificate.DerivedExpired {
			expired++
		}
	}

	u.reporter.ReportCertificateCounts(pending, expired)
}
