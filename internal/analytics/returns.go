package analytics

import (
	"math"
	"time"
)

// ReturnPct is the percentage performance of a current price against a
// reference price. It is total: a missing or non-positive reference, a
// zero current price, or a non-finite result all yield exactly 0, so
// aggregates built on top never see NaN or Inf.
func ReturnPct(current, reference float64) float64 {
	if current == 0 || reference <= 0 {
		return 0
	}
	value := (current - reference) / reference * 100
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// round1 rounds to one decimal place, the precision used for every
// user-facing percentage.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// WindowStarts returns the reference-window start times used for the
// 1-day, 30-day and year-to-date performance figures. YTD deliberately
// starts on January 2nd: January 1st is a non-trading day almost
// everywhere and would otherwise anchor the window on a stale price.
func WindowStarts(now time.Time) (day, month, ytd time.Time) {
	day = now.AddDate(0, 0, -1)
	month = now.AddDate(0, 0, -30)
	ytd = time.Date(now.Year(), time.January, 2, 0, 0, 0, 0, now.Location())
	return day, month, ytd
}
