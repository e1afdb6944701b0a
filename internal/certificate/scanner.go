package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Notifier delivers one expiration-warning email for a certificate. A failed
// delivery is reported through the result, not an error; the scanner treats
// every certificate independently.
type Notifier interface {
	Send(ctx context.Context, cert Certificate, daysRemaining int) NotificationResult
}

// SendGate paces consecutive notification sends. Wait blocks until the next
// send is allowed or the context is cancelled.
type SendGate interface {
	Wait(ctx context.Context) error
}

// ErrScanInProgress is returned when a scan is requested while another one is
// still running. Firings are skipped rather than queued or run concurrently.
var ErrScanInProgress = errors.New("a scan is already in progress")

// ScanObserver receives scan outcomes, e.g. for metrics reporting.
type ScanObserver interface {
	ObserveScan(summary ScanSummary)
}

// Scanner selects certificates entering the notification window and asks the
// notifier to warn their recipients. It never mutates certificate data other
// than the last-notified marker.
type Scanner struct {
	store    Store
	notifier Notifier
	gate     SendGate
	clock    clockwork.Clock
	observer ScanObserver
	running  atomic.Bool
}

// NewScanner creates a scanner. The gate and observer are optional.
func NewScanner(store Store, notifier Notifier, gate SendGate, clock clockwork.Clock) *Scanner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scanner{
		store:    store,
		notifier: notifier,
		gate:     gate,
		clock:    clock,
	}
}

// SetObserver registers an observer notified after every completed scan.
func (s *Scanner) SetObserver(observer ScanObserver) {
	s.observer = observer
}

// Scan finds PENDING certificates expiring within the next daysThreshold days
// and sends one notification per certificate, sequentially. Certificates
// already notified today are skipped so repeated scans within the same day do
// not resend. A store failure aborts the scan; a send failure is recorded and
// the loop continues. Delivery is at-least-once: if recording the
// last-notified marker fails after a successful send, a later scan that day
// resends to those recipients.
func (s *Scanner) Scan(ctx context.Context, daysThreshold int) (ScanSummary, error) {
	if daysThreshold < 0 {
		return ScanSummary{}, fmt.Errorf("days threshold must be >= 0, got %d", daysThreshold)
	}

	if !s.running.CompareAndSwap(false, true) {
		return ScanSummary{}, ErrScanInProgress
	}
	defer s.running.Store(false)

	summary := ScanSummary{
		ScanID:  uuid.NewString(),
		Results: []NotificationResult{},
	}

	now := s.clock.Now()
	today := Midnight(now)
	targetDate := EndOfDay(today.AddDate(0, 0, daysThreshold))

	slog.Info("starting expiration scan",
		"scan", summary.ScanID, "daysThreshold", daysThreshold,
		"from", today, "to", targetDate)

	certs, err := s.store.FindByStatusAndDateRange(StatusPending, today, targetDate)
	if err != nil {
		return ScanSummary{}, fmt.Errorf("failed to query expiring certificates: %w", err)
	}

	if len(certs) == 0 {
		slog.Info("no certificates entering the notification window", "scan", summary.ScanID)
		s.observe(summary)
		return summary, nil
	}

	summary.Checked = len(certs)
	slog.Info("found expiring certificates", "scan", summary.ScanID, "count", len(certs))

	sentAny := false
	for _, cert := range certs {
		if cert.LastNotifiedAt.Valid && Midnight(cert.LastNotifiedAt.Time).Equal(today) {
			slog.Info("certificate already notified today, skipping",
				"scan", summary.ScanID, "certificate", cert.ID, "lastNotifiedAt", cert.LastNotifiedAt.Time)
			summary.Skipped++
			summary.Results = append(summary.Results, NotificationResult{
				CertificateID:   cert.ID,
				CertificateName: cert.Name,
				Recipients:      cert.NotificationEmails,
				Skipped:         true,
			})
			continue
		}

		if sentAny && s.gate != nil {
			if err := s.gate.Wait(ctx); err != nil {
				return summary, fmt.Errorf("scan interrupted while waiting to send: %w", err)
			}
		}
		sentAny = true

		result := s.notifier.Send(ctx, cert, daysThreshold)
		summary.Results = append(summary.Results, result)

		if result.Success {
			summary.Sent++
			if err := s.store.MarkNotified(cert.ID, now); err != nil {
				slog.Error("failed to record notification time",
					"scan", summary.ScanID, "certificate", cert.ID, "err", err)
			}
		} else {
			summary.Failed++
			slog.Error("notification failed",
				"scan", summary.ScanID, "certificate", cert.ID, "name", cert.Name, "err", result.Error)
		}
	}

	slog.Info("expiration scan complete",
		"scan", summary.ScanID, "checked", summary.Checked,
		"sent", summary.Sent, "failed", summary.Failed, "skipped", summary.Skipped)

	s.observe(summary)
	return summary, nil
}

func (s *Scanner) observe(summary ScanSummary) {
	if s.observer != nil {
		s.observer.ObserveScan(summary)
	}
}
