package budget

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateScenarios(t *testing.T) {
	t.Parallel()
	b, err := New(70)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	short := "CQ CQ DE N0CALL"
	r := b.Validate(short)
	if r.CharCount != len(short) || r.Status != StatusOK {
		t.Fatalf("Validate(%q) = %+v, want {%d ok}", short, r, len(short))
	}
	if got := b.Enforce(short); got != short {
		t.Fatalf("Enforce changed short text: %q", got)
	}

	long := strings.Repeat("ABCDE", 15) // 75 chars
	r = b.Validate(long)
	if r.CharCount != 75 || r.Status != StatusExceeded {
		t.Fatalf("Validate(75 chars) = %+v, want {75 exceeded}", r)
	}
	got := b.Enforce(long)
	if len(got) != 70 || got != long[:70] {
		t.Fatalf("Enforce = %q (%d chars), want first 70", got, len(got))
	}
}

func TestGradeThresholds(t *testing.T) {
	t.Parallel()
	// limit 210: warn=max(180,178)=180, crit=max(195,195)=195
	tests := []struct {
		count int
		want  Status
	}{
		{0, StatusOK},
		{179, StatusOK},
		{180, StatusWarning},
		{194, StatusWarning},
		{195, StatusCritical},
		{209, StatusCritical},
		{210, StatusExceeded},
		{300, StatusExceeded},
	}
	for _, tt := range tests {
		if got := Grade(tt.count, 210).Status; got != tt.want {
			t.Fatalf("Grade(%d, 210) = %s, want %s", tt.count, got, tt.want)
		}
	}

	// Small limits use the percentage branch: limit 70 -> warn=max(40,59)=59, crit=max(55,65)=65.
	w, c := Thresholds(70)
	if w != 59 || c != 65 {
		t.Fatalf("Thresholds(70) = %d,%d want 59,65", w, c)
	}
}

func TestEnforceIdempotentAndRuneAware(t *testing.T) {
	t.Parallel()
	b, _ := New(10)
	in := "ÉÉÉÉÉÉÉÉÉÉÉÉ73" // 14 runes, multi-byte
	once := b.Enforce(in)
	if Count(once) != 10 {
		t.Fatalf("Enforce kept %d runes, want 10", Count(once))
	}
	if twice := b.Enforce(once); twice != once {
		t.Fatalf("Enforce not idempotent: %q vs %q", twice, once)
	}
}

func TestSetLimitDoesNotTruncate(t *testing.T) {
	t.Parallel()
	b, _ := New(210)
	text := strings.Repeat("x", 100)
	if _, truncated := b.Commit(text); truncated {
		t.Fatal("unexpected truncation at limit 210")
	}

	if err := b.SetLimit(9); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("SetLimit(9) err = %v, want ErrInvalidLimit", err)
	}
	if err := b.SetLimit(70); err != nil {
		t.Fatalf("SetLimit(70): %v", err)
	}
	if b.Committed() != text {
		t.Fatal("SetLimit must not touch committed text")
	}
	if !b.Overflows() {
		t.Fatal("expected overflow after lowering limit")
	}
	b.Truncate()
	if Count(b.Committed()) != 70 || b.Overflows() {
		t.Fatalf("Truncate left %d chars", Count(b.Committed()))
	}
}

func TestNewRejectsSmallLimit(t *testing.T) {
	t.Parallel()
	if _, err := New(5); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("New(5) err = %v", err)
	}
}

func TestEstimateDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		limit int
		secs  int
		text  string
	}{
		{limit: 210, secs: 255, text: "~4min 15s"},
		{limit: 70, secs: 90, text: "~1min 30s"},
		{limit: 10, secs: 15, text: "~15s"},
		{limit: 51, secs: 60, text: "~1min"},
	}
	for _, tt := range tests {
		if got := EstimateDurationSeconds(tt.limit); got != tt.secs {
			t.Fatalf("EstimateDurationSeconds(%d) = %d, want %d", tt.limit, got, tt.secs)
		}
		if got := FormatDuration(tt.secs); got != tt.text {
			t.Fatalf("FormatDuration(%d) = %q, want %q", tt.secs, got, tt.text)
		}
	}
}

func TestPresetName(t *testing.T) {
	t.Parallel()
	if PresetName(140) != "medium" || PresetName(99) != "custom" {
		t.Fatal("unexpected preset names")
	}
}
