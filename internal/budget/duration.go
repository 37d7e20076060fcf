package budget

import (
	"fmt"
	"time"
)

// Segments is the number of JS8 segments a message of limit characters needs.
func Segments(limit int) int {
	if limit < 0 {
		limit = 0
	}
	return limit/charsPerSegment + 1
}

// EstimateDurationSeconds is the worst-case airtime for a bulletin of limit
// characters.
func EstimateDurationSeconds(limit int) int {
	return Segments(limit) * secondsPerSegment
}

// EstimateDuration is EstimateDurationSeconds as a time.Duration.
func EstimateDuration(limit int) time.Duration {
	return time.Duration(EstimateDurationSeconds(limit)) * time.Second
}

// FormatDuration renders an airtime estimate the way the status line shows it:
// "~45s", "~4min 15s", "~5min".
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("~%ds", seconds)
	}
	m, s := seconds/60, seconds%60
	if s > 0 {
		return fmt.Sprintf("~%dmin %ds", m, s)
	}
	return fmt.Sprintf("~%dmin", m)
}
