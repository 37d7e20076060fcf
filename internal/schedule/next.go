package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ComputeNext returns the first trigger strictly after now.
//
// Fixed intervals land on minute-of-hour multiples of the interval with
// seconds zeroed. When the next multiple reaches 60 the overflow is carried
// into whole hours and the minute wraps, so intervals of an hour or more fire
// on the top of the hour.
//
// Even and odd hours fire at the top of the first matching hour after now,
// never at now itself.
func ComputeNext(s Spec, now time.Time) time.Time {
	switch s.Kind {
	case KindEvenHours:
		return nextParityHour(now, 0)
	case KindOddHours:
		return nextParityHour(now, 1)
	default:
		return nextFixed(now, s.Minutes)
	}
}

// Next implements cron.Schedule.
func (s Spec) Next(t time.Time) time.Time { return ComputeNext(s, t) }

func nextFixed(now time.Time, m int) time.Time {
	if m <= 0 {
		m = DefaultInterval
	}
	// Stepped in absolute time from the current minute. Rebuilding from wall
	// fields picks the first of two repeated local hours on fall-back days.
	next := (now.Minute()/m + 1) * m
	t := now.Truncate(time.Minute).Add(time.Duration(next-now.Minute()) * time.Minute)
	for !t.After(now) {
		t = t.Add(time.Duration(m) * time.Minute)
	}
	return t
}

func nextParityHour(now time.Time, parity int) time.Time {
	// Built from the wall clock; Truncate(time.Hour) is wrong for zones with
	// non-hour offsets.
	t := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	for t.Hour()%2 != parity || !t.After(now) {
		t = t.Add(time.Hour)
	}
	return t
}

// Preview returns the next n trigger times of sched after from.
func Preview(sched cron.Schedule, from time.Time, n int) []time.Time {
	if sched == nil || n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	t := from
	for range n {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}

// Until formats the time left before next the way the status line shows it.
func Until(next, now time.Time) string {
	d := next.Sub(now)
	if d <= 0 {
		return "now"
	}
	mins := int(d / time.Minute)
	if mins < 1 {
		return "in <1 min"
	}
	if mins < 60 {
		return fmt.Sprintf("in %d min", mins)
	}
	return fmt.Sprintf("in %dh%02d", mins/60, mins%60)
}
