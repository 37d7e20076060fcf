package schedule

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Spec
		wantErr bool
	}{
		{in: "15", want: Spec{Kind: KindFixedInterval, Minutes: 15}},
		{in: " 1440 ", want: Spec{Kind: KindFixedInterval, Minutes: 1440}},
		{in: "2h", want: Spec{Kind: KindFixedInterval, Minutes: 120}},
		{in: "30m", want: Spec{Kind: KindFixedInterval, Minutes: 30}},
		{in: "even", want: Even()},
		{in: "ODD", want: Odd()},
		{in: "", wantErr: true},
		{in: "7", wantErr: true},
		{in: "45m", wantErr: true},
		{in: "hourly", wantErr: true},
		{in: "-15", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("Parse(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()
	specs := []Spec{Even(), Odd(), Default()}
	for _, m := range Intervals {
		s, _ := Every(m)
		specs = append(specs, s)
	}
	for _, s := range specs {
		back, err := Parse(s.String())
		if err != nil || back != s {
			t.Fatalf("round trip %q: %+v, %v", s.String(), back, err)
		}
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"10":   "every 10 min",
		"60":   "every hour",
		"360":  "every 6 h",
		"1440": "every 24 h",
	}
	for in, want := range tests {
		s, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := s.Label(); got != want {
			t.Fatalf("Label(%s) = %q, want %q", in, got, want)
		}
	}
}
