package util

import "time"

// IsBusinessDay reports whether t falls on a weekday. Exchange holidays are
// out of scope; settlement-date checks only need the weekend case.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay returns the first weekday strictly after t.
func NextBusinessDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
