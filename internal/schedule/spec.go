// Package schedule computes bulletin trigger times.
//
// A Spec is one of: a fixed minute interval aligned to the hour, every even
// hour, or every odd hour. Spec implements cron.Schedule so it can be handed
// to anything that drives robfig/cron schedules.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind describes the normalized kind of a schedule.
type Kind int

const (
	KindFixedInterval Kind = iota
	KindEvenHours
	KindOddHours
)

func (k Kind) String() string {
	switch k {
	case KindFixedInterval:
		return "interval"
	case KindEvenHours:
		return "even"
	case KindOddHours:
		return "odd"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Intervals are the fixed intervals offered to the operator, in minutes.
var Intervals = []int{10, 15, 30, 60, 120, 180, 240, 360, 720, 1440}

// DefaultInterval is used when nothing valid was persisted.
const DefaultInterval = 15

// Spec is a trigger schedule. The zero value is not valid; use Every, Even,
// Odd or Parse.
type Spec struct {
	Kind    Kind
	Minutes int // only for KindFixedInterval
}

var _ cron.Schedule = Spec{}

func Every(minutes int) (Spec, error) {
	s := Spec{Kind: KindFixedInterval, Minutes: minutes}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

func Even() Spec { return Spec{Kind: KindEvenHours} }
func Odd() Spec  { return Spec{Kind: KindOddHours} }

// Default returns the 15-minute schedule.
func Default() Spec { return Spec{Kind: KindFixedInterval, Minutes: DefaultInterval} }

// Validate reports whether s is one of the supported schedules.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindEvenHours, KindOddHours:
		return nil
	case KindFixedInterval:
		for _, m := range Intervals {
			if m == s.Minutes {
				return nil
			}
		}
		return fmt.Errorf("unsupported interval %d min (allowed: %s)", s.Minutes, intervalList())
	default:
		return fmt.Errorf("unknown schedule kind %d", int(s.Kind))
	}
}

// String returns the persisted form: "15", "even" or "odd".
func (s Spec) String() string {
	switch s.Kind {
	case KindEvenHours:
		return "even"
	case KindOddHours:
		return "odd"
	default:
		return strconv.Itoa(s.Minutes)
	}
}

// Label is the human-readable form used in logs and status output.
func (s Spec) Label() string {
	switch s.Kind {
	case KindEvenHours:
		return "even hours (00:00, 02:00, ...)"
	case KindOddHours:
		return "odd hours (01:00, 03:00, ...)"
	}
	switch {
	case s.Minutes < 60:
		return fmt.Sprintf("every %d min", s.Minutes)
	case s.Minutes == 60:
		return "every hour"
	case s.Minutes == 1440:
		return "every 24 h"
	default:
		return fmt.Sprintf("every %d h", s.Minutes/60)
	}
}

// Parse parses the persisted form of a schedule.
//
// Supported forms:
//   - "even", "odd"
//   - a minute count from Intervals: "10", "15", ..., "1440"
//   - the same minute count as a Go duration: "15m", "2h", "24h"
func Parse(raw string) (Spec, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Spec{}, fmt.Errorf("schedule required")
	}
	switch s {
	case "even":
		return Even(), nil
	case "odd":
		return Odd(), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Every(n)
	}
	if m, ok := parseDurationMinutes(s); ok {
		return Every(m)
	}
	return Spec{}, fmt.Errorf("invalid schedule %q (use even, odd or minutes: %s)", raw, intervalList())
}

func intervalList() string {
	parts := make([]string, len(Intervals))
	for i, m := range Intervals {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}

func parseDurationMinutes(s string) (int, bool) {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 || d%time.Minute != 0 {
		return 0, false
	}
	return int(d / time.Minute), true
}
