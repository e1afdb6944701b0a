package certificate

import (
	"database/sql"
	"time"
)

// CertificateType identifies the kind of digital certificate being tracked.
type CertificateType string

const (
	TypeA1 CertificateType = "A1"
	TypeA3 CertificateType = "A3"
)

// WorkflowStatus is the persisted, manually-managed lifecycle field. Only
// PENDING certificates are eligible for expiration notifications; a
// certificate becomes COMPLETED through an explicit renewal action.
type WorkflowStatus string

const (
	StatusPending   WorkflowStatus = "PENDING"
	StatusCompleted WorkflowStatus = "COMPLETED"
)

// DerivedStatus is computed live from the expiration date on every read.
// It is never persisted; the stored WorkflowStatus may be stale with respect
// to the calendar.
type DerivedStatus string

const (
	DerivedExpired DerivedStatus = "EXPIRED"
	DerivedOnTime  DerivedStatus = "ON_TIME"
)

// Certificate represents a tracked digital certificate.
type Certificate struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	TaxID              string          `json:"taxId"`
	Type               CertificateType `json:"type"`
	ExpiresAt          time.Time       `json:"expiresAt"`
	PasswordCipher     []byte          `json:"-"`
	NotificationEmails []string        `json:"notificationEmails"`
	Status             WorkflowStatus  `json:"status"`
	LastNotifiedAt     sql.NullTime    `json:"-"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// NotificationResult records the outcome of one notification attempt for one
// certificate within a scan. Results are returned to the caller, never
// persisted.
type NotificationResult struct {
	CertificateID   int64    `json:"certificateId"`
	CertificateName string   `json:"certificateName"`
	Recipients      []string `json:"recipients"`
	Success         bool     `json:"success"`
	Skipped         bool     `json:"skipped,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// ScanSummary aggregates the outcome of a single expiration scan.
type ScanSummary struct {
	ScanID  string               `json:"scanId"`
	Checked int                  `json:"checked"`
	Sent    int                  `json:"sent"`
	Failed  int                  `json:"failed"`
	Skipped int                  `json:"skipped"`
	Results []NotificationResult `json:"results"`
}
