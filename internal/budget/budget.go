// Package budget enforces the character ceiling of a bulletin and estimates
// how long it keeps the transmitter keyed.
//
// Characters are counted as Unicode code points, the same unit the JS8Call
// message box uses.
package budget

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// MinLimit is the smallest accepted character ceiling.
	MinLimit = 10
	// LargeLimit is the ceiling above which callers should confirm with the
	// operator (roughly 3 minutes of airtime).
	LargeLimit = 500

	LimitShort  = 70
	LimitMedium = 140
	LimitLong   = 210

	DefaultLimit = LimitLong

	// Airtime model: ~13 characters per JS8 segment, ~15 s per segment.
	charsPerSegment   = 13
	secondsPerSegment = 15
)

var ErrInvalidLimit = errors.New("character limit must be at least 10")

// Status grades a character count against the ceiling.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusCritical
	StatusExceeded
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	case StatusExceeded:
		return "exceeded"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Preset is a named ceiling offered to the operator.
type Preset struct {
	Name  string
	Limit int
}

// Presets lists the standard ceilings in display order.
var Presets = []Preset{
	{Name: "short", Limit: LimitShort},
	{Name: "medium", Limit: LimitMedium},
	{Name: "long", Limit: LimitLong},
}

// PresetName returns the preset matching limit, or "custom".
func PresetName(limit int) string {
	for _, p := range Presets {
		if p.Limit == limit {
			return p.Name
		}
	}
	return "custom"
}

// Report is the outcome of Validate.
type Report struct {
	CharCount int
	Limit     int
	Status    Status
}

// Remaining is the number of characters left before the ceiling (never negative).
func (r Report) Remaining() int {
	if r.CharCount >= r.Limit {
		return 0
	}
	return r.Limit - r.CharCount
}

// Budget holds the current ceiling and the committed bulletin text.
//
// Invariant: after Commit, len(Committed()) <= Limit().
// The zero value is not usable; use New.
type Budget struct {
	limit     int
	committed string
}

// New returns a Budget with the given ceiling.
func New(limit int) (*Budget, error) {
	if limit < MinLimit {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidLimit, limit)
	}
	return &Budget{limit: limit}, nil
}

func (b *Budget) Limit() int        { return b.limit }
func (b *Budget) Committed() string { return b.committed }

// SetLimit changes the ceiling. It does not truncate the committed text; use
// Overflows to find out whether the caller must decide between Truncate and
// keeping the text until the next edit.
func (b *Budget) SetLimit(n int) error {
	if n < MinLimit {
		return fmt.Errorf("%w (got %d)", ErrInvalidLimit, n)
	}
	b.limit = n
	return nil
}

// Overflows reports whether the committed text is longer than the ceiling.
func (b *Budget) Overflows() bool {
	return Count(b.committed) > b.limit
}

// Truncate clamps the committed text to the current ceiling.
func (b *Budget) Truncate() {
	b.committed = b.Enforce(b.committed)
}

// Commit enforces the ceiling on text and stores the result.
// It reports whether text had to be truncated.
func (b *Budget) Commit(text string) (string, bool) {
	out := b.Enforce(text)
	b.committed = out
	return out, len(out) != len(text)
}

// Validate grades text against the ceiling.
func (b *Budget) Validate(text string) Report {
	return Grade(Count(text), b.limit)
}

// Enforce hard-truncates text to exactly Limit characters when it is longer.
// It never drops further and is idempotent.
func (b *Budget) Enforce(text string) string {
	return Truncate(text, b.limit)
}

// Count returns the number of characters (code points) in text.
func Count(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate returns the first n characters of text.
func Truncate(text string, n int) string {
	if n < 0 {
		n = 0
	}
	if Count(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// Thresholds returns the warning and critical counts for limit.
func Thresholds(limit int) (warnAt, critAt int) {
	warnAt = max(limit-30, limit*85/100)
	critAt = max(limit-15, limit*93/100)
	return warnAt, critAt
}

// Grade classifies charCount against limit.
func Grade(charCount, limit int) Report {
	warnAt, critAt := Thresholds(limit)
	r := Report{CharCount: charCount, Limit: limit}
	switch {
	case charCount >= limit:
		r.Status = StatusExceeded
	case charCount >= critAt:
		r.Status = StatusCritical
	case charCount >= warnAt:
		r.Status = StatusWarning
	default:
		r.Status = StatusOK
	}
	return r
}
