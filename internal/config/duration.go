package config

import (
	"fmt"
	"strings"
	"time"
)

// Durations in the options file are Go duration strings such as "30s" or
// "2m". A blank value means unset.

// ParseDuration checks one duration option. key names the option in errors.
func ParseDuration(key, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("option %s: %q is not a duration (want e.g. 30s or 2m)", key, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("option %s: %q is negative", key, raw)
	}
	return d, nil
}

// DurationOr returns the option value, or def when it is unset, zero or
// unparsable. Options are checked on load, so section mappers use this.
func DurationOr(raw string, def time.Duration) time.Duration {
	d, err := ParseDuration("", raw)
	if err != nil || d == 0 {
		return def
	}
	return d
}

type durationOption struct {
	key, raw string
}

// durationOptions lists every duration in o that is present.
func (o *Options) durationOptions() []durationOption {
	out := []durationOption{
		{"poll_interval", o.PollInterval},
		{"diag.read_timeout", o.Diag.ReadTimeout},
		{"diag.idle_timeout", o.Diag.IdleTimeout},
	}
	if o.Storage != nil {
		out = append(out, durationOption{"storage.busy_timeout", o.Storage.BusyTimeout})
	}
	if o.Telegram != nil {
		out = append(out, durationOption{"telegram.timeout", o.Telegram.Timeout})
	}
	return out
}
