package schedule

import (
	"math/rand"
	"testing"
	"time"
)

func at(h, m, s int) time.Time {
	return time.Date(2026, 3, 14, h, m, s, 0, time.UTC)
}

func TestComputeNextScenarios(t *testing.T) {
	t.Parallel()
	every := func(m int) Spec {
		s, err := Every(m)
		if err != nil {
			t.Fatalf("Every(%d): %v", m, err)
		}
		return s
	}
	tests := []struct {
		name string
		spec Spec
		now  time.Time
		want time.Time
	}{
		{"15 at 10:07", every(15), at(10, 7, 0), at(10, 15, 0)},
		{"15 on boundary", every(15), at(10, 15, 0), at(10, 30, 0)},
		{"15 rolls hour", every(15), at(10, 50, 30), at(11, 0, 0)},
		{"10 drops seconds", every(10), at(10, 7, 59), at(10, 10, 0)},
		{"60", every(60), at(10, 7, 0), at(11, 0, 0)},
		{"120", every(120), at(10, 7, 0), at(12, 0, 0)},
		{"1440", every(1440), at(10, 7, 0), time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)},
		{"even on boundary", Even(), at(10, 0, 0), at(12, 0, 0)},
		{"even from odd hour", Even(), at(11, 30, 0), at(12, 0, 0)},
		{"even from even hour", Even(), at(10, 0, 1), at(12, 0, 0)},
		{"odd from even hour", Odd(), at(10, 0, 0), at(11, 0, 0)},
		{"odd on boundary", Odd(), at(11, 0, 0), at(13, 0, 0)},
		{"odd crosses midnight", Odd(), at(23, 30, 0), time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)},
		{"even crosses midnight", Even(), at(23, 0, 0), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := ComputeNext(tt.spec, tt.now); !got.Equal(tt.want) {
			t.Fatalf("%s: ComputeNext = %s, want %s", tt.name, got.Format(time.RFC3339), tt.want.Format(time.RFC3339))
		}
	}
}

func TestComputeNextFixedProperties(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(1))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, m := range Intervals {
		spec, err := Every(m)
		if err != nil {
			t.Fatalf("Every(%d): %v", m, err)
		}
		for range 500 {
			now := start.Add(time.Duration(r.Int63n(int64(366 * 24 * time.Hour))))
			got := ComputeNext(spec, now)
			if !got.After(now) {
				t.Fatalf("m=%d now=%s: result %s not after now", m, now, got)
			}
			if got.Sub(now) > time.Duration(m)*time.Minute {
				t.Fatalf("m=%d now=%s: result %s more than %d min away", m, now, got, m)
			}
			if got.Second() != 0 || got.Nanosecond() != 0 {
				t.Fatalf("m=%d: result %s has seconds", m, got)
			}
			if got.Minute()%m != 0 && got.Minute() != 0 {
				t.Fatalf("m=%d: minute %d not a multiple", m, got.Minute())
			}
		}
	}
}

func TestComputeNextAcrossDSTChanges(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	nows := []time.Time{
		// 01:37 EST, the second 01:xx on fall-back day.
		time.Date(2026, 11, 1, 6, 37, 0, 0, time.UTC).In(loc),
		// 01:50 EDT, the first one.
		time.Date(2026, 11, 1, 5, 50, 0, 0, time.UTC).In(loc),
		// 01:37 EST on spring-forward day; 02:xx does not exist.
		time.Date(2026, 3, 8, 6, 37, 0, 0, time.UTC).In(loc),
	}
	for _, now := range nows {
		for _, m := range []int{10, 15, 30, 60} {
			spec, err := Every(m)
			if err != nil {
				t.Fatalf("Every(%d): %v", m, err)
			}
			got := ComputeNext(spec, now)
			if !got.After(now) {
				t.Fatalf("m=%d now=%s: result %s not after now", m, now.Format(time.RFC3339), got.Format(time.RFC3339))
			}
			if got.Sub(now) > time.Duration(m)*time.Minute {
				t.Fatalf("m=%d now=%s: result %s more than %d min away", m, now.Format(time.RFC3339), got.Format(time.RFC3339), m)
			}
			if got.Second() != 0 || (got.Minute()%m != 0 && got.Minute() != 0) {
				t.Fatalf("m=%d: result %s off the grid", m, got.Format(time.RFC3339))
			}
		}
	}

	// Stepping from each result must keep moving forward through the
	// repeated hour.
	spec, _ := Every(15)
	now := time.Date(2026, 11, 1, 4, 50, 0, 0, time.UTC).In(loc)
	for range 12 {
		next := ComputeNext(spec, now)
		if next.Sub(now) <= 0 || next.Sub(now) > 15*time.Minute {
			t.Fatalf("step from %s went to %s", now.Format(time.RFC3339), next.Format(time.RFC3339))
		}
		now = next
	}
}

func TestComputeNextParityProperties(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(2))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for range 1000 {
		now := start.Add(time.Duration(r.Int63n(int64(366*24*time.Hour))) / time.Minute * time.Minute)
		for _, tc := range []struct {
			spec   Spec
			parity int
		}{{Even(), 0}, {Odd(), 1}} {
			got := ComputeNext(tc.spec, now)
			if !got.After(now) || got.Hour()%2 != tc.parity || got.Minute() != 0 || got.Second() != 0 {
				t.Fatalf("%s now=%s: got %s", tc.spec, now, got)
			}
			if got.Sub(now) > 2*time.Hour {
				t.Fatalf("%s now=%s: got %s more than 2h away", tc.spec, now, got)
			}
		}
	}
}

func TestPreviewUsesCronContract(t *testing.T) {
	t.Parallel()
	spec, _ := Every(30)
	got := Preview(spec, at(10, 7, 0), 3)
	want := []time.Time{at(10, 30, 0), at(11, 0, 0), at(11, 30, 0)}
	if len(got) != len(want) {
		t.Fatalf("Preview len = %d", len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("Preview[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if Preview(nil, at(0, 0, 0), 3) != nil {
		t.Fatal("Preview(nil) should be nil")
	}
}

func TestUntil(t *testing.T) {
	t.Parallel()
	now := at(10, 0, 0)
	tests := []struct {
		next time.Time
		want string
	}{
		{at(9, 0, 0), "now"},
		{at(10, 0, 30), "in <1 min"},
		{at(10, 15, 0), "in 15 min"},
		{at(12, 5, 0), "in 2h05"},
	}
	for _, tt := range tests {
		if got := Until(tt.next, now); got != tt.want {
			t.Fatalf("Until(%s) = %q, want %q", tt.next.Format("15:04"), got, tt.want)
		}
	}
}
