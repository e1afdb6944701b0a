package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler fires expiration scans on a cron schedule.
type Scheduler struct {
	service   *Service
	scanner   *Scanner
	scheduler gocron.Scheduler
}

// NewScheduler creates a scheduler firing scans according to the cron
// expression. A malformed expression is rejected here, at startup.
func NewScheduler(service *Service, scanner *Scanner, crontab string) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	scheduler := &Scheduler{
		service:   service,
		scanner:   scanner,
		scheduler: s,
	}

	_, err = s.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(scheduler.runScheduledScan),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid scan schedule %q: %w", crontab, err)
	}

	return scheduler, nil
}

// Start begins firing scheduled scans.
func (s *Scheduler) Start() {
	slog.Info("starting certificate scan scheduler")
	s.scheduler.Start()
}

// Stop halts future firings. A scan already in flight runs to completion.
func (s *Scheduler) Stop() {
	slog.Info("stopping certificate scan scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("error shutting down scheduler", "err", err)
	}
}

// runScheduledScan is the task that runs on every firing. All errors are
// absorbed here so a failed cycle never unregisters future firings.
func (s *Scheduler) runScheduledScan() {
	// Check the db-backed pause switch before doing any work
	isActive, err := s.service.SchedulerActive()
	if err != nil {
		slog.Error("error checking scheduler status", "err", err)
		return
	}
	if !isActive {
		slog.Info("scheduler is paused, skipping expiration scan")
		return
	}

	daysThreshold, err := s.service.DaysThreshold()
	if err != nil {
		slog.Error("error reading days threshold, skipping cycle", "err", err)
		return
	}

	if _, err := s.scanner.Scan(context.Background(), daysThreshold); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			slog.Warn("previous scan still running, skipping this firing")
			return
		}
		slog.Error("scheduled scan failed", "err", err)
	}
}
