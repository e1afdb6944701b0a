package certificate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Store defines the interface for certificate persistence.
type Store interface {
	Init() error
	Close() error
	CreateCertificate(cert Certificate) (int64, error)
	GetCertificate(id int64) (Certificate, error)
	GetCertificates() ([]Certificate, error)
	FindByStatusAndDateRange(status WorkflowStatus, from, to time.Time) ([]Certificate, error)
	UpdateCertificate(cert Certificate) error
	MarkCompleted(id int64) error
	MarkNotified(id int64, at time.Time) error
	DeleteCertificate(id int64) error
	GetConfigValue(key string) (string, error)
	SetConfigValue(key, value string) error
	GetCredential(key string) (string, error)
	SetCredential(key, value string) error
	GetSchedulerStatus() (bool, error)
	SetSchedulerStatus(isActive bool) error
}

// Service handles the business logic for certificates.
type Service struct {
	store Store
}

// NewService creates a new certificate service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// taxIDPattern accepts a bare 14-digit CNPJ or its formatted form
// (00.000.000/0000-00).
var taxIDPattern = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$|^\d{14}$`)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks the invariants a certificate must satisfy before storage.
func Validate(cert Certificate) error {
	if len(strings.TrimSpace(cert.Name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if !taxIDPattern.MatchString(cert.TaxID) {
		return fmt.Errorf("invalid tax id: %s", cert.TaxID)
	}
	if cert.Type != TypeA1 && cert.Type != TypeA3 {
		return fmt.Errorf("invalid certificate type: %s", cert.Type)
	}
	if cert.ExpiresAt.IsZero() {
		return fmt.Errorf("expiration date is required")
	}
	if len(cert.NotificationEmails) == 0 {
		return fmt.Errorf("at least one notification email is required")
	}
	for _, email := range cert.NotificationEmails {
		if !emailPattern.MatchString(email) {
			return fmt.Errorf("invalid notification email: %s", email)
		}
	}
	if cert.Status != "" && cert.Status != StatusPending && cert.Status != StatusCompleted {
		return fmt.Errorf("invalid status: %s", cert.Status)
	}
	return nil
}

// CreateCertificate validates and stores a new certificate.
func (s *Service) CreateCertificate(cert Certificate) (Certificate, error) {
	if err := Validate(cert); err != nil {
		return Certificate{}, err
	}
	id, err := s.store.CreateCertificate(cert)
	if err != nil {
		return Certificate{}, err
	}
	return s.store.GetCertificate(id)
}

// GetCertificate retrieves a single certificate.
func (s *Service) GetCertificate(id int64) (Certificate, error) {
	return s.store.GetCertificate(id)
}

// GetCertificates retrieves all certificates ordered by expiration date.
func (s *Service) GetCertificates() ([]Certificate, error) {
	return s.store.GetCertificates()
}

// UpdateCertificate validates and persists changes to an existing certificate.
func (s *Service) UpdateCertificate(cert Certificate) (Certificate, error) {
	if err := Validate(cert); err != nil {
		return Certificate{}, err
	}
	if err := s.store.UpdateCertificate(cert); err != nil {
		return Certificate{}, err
	}
	return s.store.GetCertificate(cert.ID)
}

// CompleteCertificate marks a certificate as renewed.
func (s *Service) CompleteCertificate(id int64) (Certificate, error) {
	if err := s.store.MarkCompleted(id); err != nil {
		return Certificate{}, err
	}
	return s.store.GetCertificate(id)
}

// DeleteCertificate removes a certificate.
func (s *Service) DeleteCertificate(id int64) error {
	return s.store.DeleteCertificate(id)
}

// GetConfigValue retrieves a configuration value.
func (s *Service) GetConfigValue(key string) (string, error) {
	return s.store.GetConfigValue(key)
}

// DaysThreshold returns the configured notification threshold in days.
func (s *Service) DaysThreshold() (int, error) {
	value, err := s.store.GetConfigValue("days_threshold")
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 10, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("invalid days_threshold configuration: %s", value)
	}
	return days, nil
}

// SetDaysThreshold updates the configured notification threshold.
func (s *Service) SetDaysThreshold(days int) error {
	if days < 0 {
		return fmt.Errorf("days threshold must be >= 0, got %d", days)
	}
	return s.store.SetConfigValue("days_threshold", strconv.Itoa(days))
}

// ScanSchedule returns the configured cron expression for scheduled scans.
func (s *Service) ScanSchedule() (string, error) {
	value, err := s.store.GetConfigValue("scan_schedule")
	if err != nil {
		return "", err
	}
	if value == "" {
		return "0 9 * * *", nil
	}
	return value, nil
}

// SetScanSchedule updates the configured cron expression.
func (s *Service) SetScanSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("scan schedule cannot be empty")
	}
	return s.store.SetConfigValue("scan_schedule", schedule)
}

// SchedulerActive reports whether scheduled scans are currently enabled.
func (s *Service) SchedulerActive() (bool, error) {
	return s.store.GetSchedulerStatus()
}

// PauseScheduler disables scheduled scans until resumed.
func (s *Service) PauseScheduler() error {
	return s.store.SetSchedulerStatus(false)
}

// ResumeScheduler re-enables scheduled scans.
func (s *Service) ResumeScheduler() error {
	return s.store.SetSchedulerStatus(true)
}
