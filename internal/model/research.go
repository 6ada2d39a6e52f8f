package model

import (
	"math"
	"time"
)

// DefaultSLADays is the number of days an attempt may sit in research before
// it is considered overdue.
const DefaultSLADays = 3

const day = 24 * time.Hour

func elapsedDays(now, lastActionAt time.Time) float64 {
	return float64(now.Sub(lastActionAt)) / float64(day)
}

// DaysInResearch returns the whole days elapsed since lastActionAt.
func DaysInResearch(now, lastActionAt time.Time) int {
	return int(math.Floor(elapsedDays(now, lastActionAt)))
}

// IsOverdue reports whether more than slaDays have elapsed since lastActionAt.
func IsOverdue(now, lastActionAt time.Time, slaDays int) bool {
	return elapsedDays(now, lastActionAt) > float64(slaDays)
}

// OverdueDays returns the whole days past the SLA, never negative.
func OverdueDays(now, lastActionAt time.Time, slaDays int) int {
	d := int(math.Floor(elapsedDays(now, lastActionAt) - float64(slaDays)))
	if d < 0 {
		return 0
	}
	return d
}
