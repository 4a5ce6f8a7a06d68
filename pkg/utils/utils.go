package utils

import (
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// AddMonthsClamped adds months to t keeping the day of month when the target
// month has it, otherwise clamping to the month's last day (Jan 31 + 1 -> Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := DaysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CalculateDueDate returns the due date of installment n (1-based), one
// calendar month apart starting from the loan start date.
func CalculateDueDate(loanStartDate time.Time, paymentNumber int) time.Time {
	return AddMonthsClamped(loanStartDate, paymentNumber)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DateOf returns t's calendar date, as seen in t's own location, at UTC midnight.
// Dates from different locations compare correctly once passed through it.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsDateOverdue checks if dueDate is strictly before the day of now
func IsDateOverdue(dueDate, now time.Time) bool {
	return StartOfDay(dueDate).Before(StartOfDay(now))
}

// WithinWindow reports whether t lies in the closed interval [from, until].
func WithinWindow(t, from, until time.Time) bool {
	return !t.Before(from) && !t.After(until)
}
