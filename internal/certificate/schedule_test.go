package certificate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RejectsMalformedCron(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store)
	scanner := NewScanner(store, &fakeNotifier{}, nil, nil)

	_, err := NewScheduler(service, scanner, "not a cron expression")
	assert.Error(t, err)

	scheduler, err := NewScheduler(service, scanner, "0 9 * * *")
	require.NoError(t, err)
	scheduler.Stop()
}

func TestScheduler_SkipsWhenPaused(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store)

	// A certificate in the window would be notified if the firing ran
	_, err := store.CreateCertificate(Certificate{
		Name:               "Empresa Exemplo",
		TaxID:              "12345678000199",
		Type:               TypeA1,
		ExpiresAt:          time.Now().AddDate(0, 0, 5),
		NotificationEmails: []string{"ops@example.com"},
	})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	scanner := NewScanner(store, notifier, nil, nil)
	scheduler, err := NewScheduler(service, scanner, "0 9 * * *")
	require.NoError(t, err)
	defer scheduler.Stop()

	require.NoError(t, service.PauseScheduler())
	scheduler.runScheduledScan()
	assert.Empty(t, notifier.sent, "a paused scheduler must not scan")

	require.NoError(t, service.ResumeScheduler())
	scheduler.runScheduledScan()
	assert.Len(t, notifier.sent, 1, "resuming re-enables scheduled scans")
}

func TestScheduler_FiringSurvivesScanError(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store)
	scanner := NewScanner(&failingStore{}, &fakeNotifier{}, nil, nil)
	scheduler, err := NewScheduler(service, scanner, "0 9 * * *")
	require.NoError(t, err)
	defer scheduler.Stop()

	// The firing boundary absorbs the store failure; nothing panics and the
	// scheduler remains usable.
	scheduler.runScheduledScan()
	scheduler.runScheduledScan()
}
