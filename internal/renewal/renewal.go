// Package renewal classifies renewal dates relative to the current day.
package renewal

import (
	"time"

	"github.com/and161185/subtrack/internal/model"
)

// Status is the dashboard classification of a renewal date.
type Status string

// Renewal statuses.
const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiringSoon"
	StatusExpired      Status = "expired"
	StatusToday        Status = "today"
)

// SoonWindow is the last day count still classified as expiring soon.
const SoonWindow = 7

// DaysUntil returns the number of calendar days from now's day to d.
// Negative for past dates, zero for today.
func DaysUntil(d model.Date, now time.Time) int {
	const secondsPerDay = 24 * 60 * 60
	today := model.DateOf(now)
	// both sides are UTC midnights, so the difference is a whole number of days
	return int((d.UTC().Unix() - today.UTC().Unix()) / secondsPerDay)
}

// StatusOf classifies d.
func StatusOf(d model.Date, now time.Time) Status {
	days := DaysUntil(d, now)
	switch {
	case days < 0:
		return StatusExpired
	case days == 0:
		return StatusToday
	case days <= SoonWindow:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// IsPast reports whether d is before today.
func IsPast(d model.Date, now time.Time) bool { return DaysUntil(d, now) < 0 }

// IsToday reports whether d is today.
func IsToday(d model.Date, now time.Time) bool { return DaysUntil(d, now) == 0 }

// IsWithinDays reports whether d falls in [today, today+n].
func IsWithinDays(d model.Date, n int, now time.Time) bool {
	days := DaysUntil(d, now)
	return days >= 0 && days <= n
}

// Priority orders statuses for sorting: lower is more urgent.
func (s Status) Priority() int {
	switch s {
	case StatusExpired:
		return 0
	case StatusToday:
		return 1
	case StatusExpiringSoon:
		return 2
	default:
		return 3
	}
}
