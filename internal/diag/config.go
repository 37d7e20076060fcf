package diag

import (
	"strings"
	"time"

	"js8bulletin/internal/config"
)

const DefaultAddr = "127.0.0.1:6060"

// Config controls the optional diagnostics HTTP server.
//
// Security:
//   - Prefer binding to localhost (default).
//   - If binding to a non-loopback address, set Token or enable AllowInsecure.
type Config struct {
	Enabled       bool
	Addr          string
	Token         string
	AllowInsecure bool
	Pprof         bool

	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

// ConfigFrom maps the options file section. Durations were validated when
// the options were parsed, so parse errors fall back to defaults here.
func ConfigFrom(c config.DiagConfig) Config {
	addr := strings.TrimSpace(c.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	return Config{
		Enabled:       c.Enabled,
		Addr:          addr,
		Token:         strings.TrimSpace(c.Token),
		AllowInsecure: c.AllowInsecure,
		Pprof:         c.Pprof,
		ReadTimeout:   config.DurationOr(c.ReadTimeout, 10*time.Second),
		IdleTimeout:   config.DurationOr(c.IdleTimeout, 60*time.Second),
	}
}
