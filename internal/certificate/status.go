package certificate

import "time"

// ComputeStatusAt derives the lifecycle status of a certificate from its
// expiration date, relative to the given reference time. Both sides are
// truncated to midnight so time-of-day never influences the outcome: a
// certificate expiring later today is still ON_TIME.
func ComputeStatusAt(now, expiresAt time.Time) DerivedStatus {
	today := Midnight(now)
	expiry := Midnight(expiresAt)
	if expiry.Before(today) {
		return DerivedExpired
	}
	return DerivedOnTime
}

// ComputeStatus derives the lifecycle status relative to the current time.
func ComputeStatus(expiresAt time.Time) DerivedStatus {
	return ComputeStatusAt(time.Now(), expiresAt)
}

// Midnight truncates t to 00:00:00 in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day,
// 23:59:59.999. Used as the inclusive upper bound of the notification window.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
