package generic

import (
	"time"
)

// =============================================================================
// BILLING BASIS - How the day count of a payroll month is defined
// =============================================================================

type BillingBasis string

const (
	// BasisCalendarDays counts every day of the month.
	BasisCalendarDays BillingBasis = "calendar_days"
	// BasisWorkingDays counts Monday-Friday only. No holiday calendar applies.
	BasisWorkingDays BillingBasis = "working_days"
)

// Valid reports whether b is a known basis.
func (b BillingBasis) Valid() bool {
	return b == BasisCalendarDays || b == BasisWorkingDays
}

// =============================================================================
// CALENDAR
// =============================================================================

// ValidMonth reports whether m is in 1..12.
func ValidMonth(m time.Month) bool {
	return m >= time.January && m <= time.December
}

// DaysInMonth returns the number of calendar days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WorkingDaysInMonth counts Monday-Friday days in the given month.
func WorkingDaysInMonth(year int, month time.Month) int {
	count := 0
	n := DaysInMonth(year, month)
	for d := 1; d <= n; d++ {
		switch time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}

// TotalDays returns the day count of a month under the given basis.
func TotalDays(basis BillingBasis, year int, month time.Month) int {
	if basis == BasisWorkingDays {
		return WorkingDaysInMonth(year, month)
	}
	return DaysInMonth(year, month)
}
