package services

import "time"

// Clock abstracts wall-clock reads so overdue derivation is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var SystemClock Clock = systemClock{}

// startOfDay returns midnight UTC on t's calendar date. Due dates are stored
// as UTC midnights, so the overdue boundary must use the same zone no matter
// where the server runs. Comparison is against calendar dates, not instants:
// a task due today is not yet overdue.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
