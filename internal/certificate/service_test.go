package certificate

import (
	"strings"
	"testing"
	"time"
)

func validCert() Certificate {
	return Certificate{
		Name:               "Empresa Exemplo",
		TaxID:              "12345678000199",
		Type:               TypeA1,
		ExpiresAt:          time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC),
		NotificationEmails: []string{"ops@example.com"},
	}
}

func Test_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Certificate)
		wantError bool
		errMsg    string
	}{
		{
			name:   "valid certificate",
			mutate: func(c *Certificate) {},
		},
		{
			name:   "formatted tax id is accepted",
			mutate: func(c *Certificate) { c.TaxID = "12.345.678/0001-99" },
		},
		{
			name:      "name too short",
			mutate:    func(c *Certificate) { c.Name = "x" },
			wantError: true,
			errMsg:    "at least 2 characters",
		},
		{
			name:      "tax id too short",
			mutate:    func(c *Certificate) { c.TaxID = "1234567800019" },
			wantError: true,
			errMsg:    "invalid tax id",
		},
		{
			name:      "tax id with stray formatting",
			mutate:    func(c *Certificate) { c.TaxID = "12.345.678/000199" },
			wantError: true,
			errMsg:    "invalid tax id",
		},
		{
			name:      "unknown certificate type",
			mutate:    func(c *Certificate) { c.Type = "A2" },
			wantError: true,
			errMsg:    "invalid certificate type",
		},
		{
			name:      "missing expiration date",
			mutate:    func(c *Certificate) { c.ExpiresAt = time.Time{} },
			wantError: true,
			errMsg:    "expiration date is required",
		},
		{
			name:      "no recipients",
			mutate:    func(c *Certificate) { c.NotificationEmails = nil },
			wantError: true,
			errMsg:    "at least one notification email",
		},
		{
			name:      "malformed recipient",
			mutate:    func(c *Certificate) { c.NotificationEmails = []string{"not-an-email"} },
			wantError: true,
			errMsg:    "invalid notification email",
		},
		{
			name:      "unknown workflow status",
			mutate:    func(c *Certificate) { c.Status = "ARCHIVED" },
			wantError: true,
			errMsg:    "invalid status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := validCert()
			tt.mutate(&cert)
			err := Validate(cert)
			if tt.wantError {
				if err == nil {
					t.Errorf("Validate() expected error but got none")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
			}
		})
	}
}

func TestService_DaysThreshold(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store)

	days, err := service.DaysThreshold()
	if err != nil {
		t.Fatalf("DaysThreshold() unexpected error = %v", err)
	}
	if days != 10 {
		t.Errorf("DaysThreshold() = %d, want default 10", days)
	}

	if err := service.SetDaysThreshold(30); err != nil {
		t.Fatalf("SetDaysThreshold(30) unexpected error = %v", err)
	}
	days, err = service.DaysThreshold()
	if err != nil {
		t.Fatalf("DaysThreshold() unexpected error = %v", err)
	}
	if days != 30 {
		t.Errorf("DaysThreshold() = %d, want 30", days)
	}

	if err := service.SetDaysThreshold(-1); err == nil {
		t.Error("SetDaysThreshold(-1) expected error but got none")
	}
}

func TestService_ScanSchedule(t *testing.T) {
	store := newTestStore(t)
	service := NewService(store)

	schedule, err := service.ScanSchedule()
	if err != nil {
		t.Fatalf("ScanSchedule() unexpected error = %v", err)
	}
	if schedule != "0 9 * * *" {
		t.Errorf("ScanSchedule() = %q, want default daily at 09:00", schedule)
	}

	if err := service.SetScanSchedule("*/30 * * * *"); err != nil {
		t.Fatalf("SetScanSchedule() unexpected error = %v", err)
	}
	schedule, err = service.ScanSchedule()
	if err != nil {
		t.Fatalf("ScanSchedule() unexpected error = %v", err)
	}
	if schedule != "*/30 * * * *" {
		t.Errorf("ScanSchedule() = %q, want updated value", schedule)
	}

	if err := service.SetScanSchedule("  "); err == nil {
		t.Error("SetScanSchedule(blank) expected error but got none")
	}
}
