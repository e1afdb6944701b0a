package certificate

import (
	"testing"
	"time"
)

func Test_ComputeStatusAt(t *testing.T) {
	now := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)

	tests := map[string]struct {
		expiresAt time.Time
		expected  DerivedStatus
	}{
		"yesterday is expired": {
			expiresAt: time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
			expected:  DerivedExpired,
		},
		"long past is expired": {
			expiresAt: time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC),
			expected:  DerivedExpired,
		},
		"later today is on time": {
			expiresAt: time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC),
			expected:  DerivedOnTime,
		},
		"earlier today is still on time": {
			expiresAt: time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC),
			expected:  DerivedOnTime,
		},
		"tomorrow is on time": {
			expiresAt: time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
			expected:  DerivedOnTime,
		},
		"far future is on time": {
			expiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			expected:  DerivedOnTime,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := ComputeStatusAt(now, test.expiresAt)
			if got != test.expected {
				t.Errorf("ComputeStatusAt(%v, %v) = %v, want %v", now, test.expiresAt, got, test.expected)
			}
		})
	}
}

func Test_Midnight(t *testing.T) {
	in := time.Date(2025, 3, 15, 18, 45, 12, 345, time.UTC)
	got := Midnight(in)
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Midnight(%v) = %v, want %v", in, got, want)
	}
}

func Test_EndOfDay(t *testing.T) {
	in := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	got := EndOfDay(in)
	want := time.Date(2025, 3, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndOfDay(%v) = %v, want %v", in, got, want)
	}
}
