package config

import (
	"strings"

	logx "js8bulletin/pkg/logx"
)

// Options is the runtime options file (--config). It covers everything that
// is not part of the bulletin settings snapshot.
type Options struct {
	// SettingsPath is the bulletin settings snapshot file.
	// Default: "js8_bulletin_last.json" in the working directory.
	SettingsPath string `json:"settings_path,omitempty"`
	// WatchSettings reloads the snapshot when it is edited externally while
	// no schedule is armed.
	WatchSettings bool `json:"watch_settings,omitempty"`
	// PollInterval is the scheduler check granularity (Go duration, default "1s").
	PollInterval string `json:"poll_interval,omitempty"`

	Logging  LoggingConfig   `json:"logging"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Diag     DiagConfig      `json:"diag,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the emission history.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./history.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DiagConfig controls the optional local diagnostics HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type DiagConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`

	ReadTimeout string `json:"read_timeout,omitempty"`
	IdleTimeout string `json:"idle_timeout,omitempty"`
}

// TelegramConfig is the optional send-only Telegram sink.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// Timeout is a Go duration string for each API call (default "10s").
	Timeout string `json:"timeout,omitempty"`
	// Emissions also posts a short notice for every emission.
	Emissions bool `json:"emissions,omitempty"`
}

// DefaultOptions is what runs when no options file is given.
func DefaultOptions() *Options {
	return &Options{
		SettingsPath:  DefaultSettingsFile,
		WatchSettings: true,
		PollInterval:  "1s",
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// LogConfig maps the logging section onto logx.
func (o *Options) LogConfig() logx.Config {
	if o == nil {
		return logx.Config{Level: "info", Console: true}
	}
	l := o.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled:    l.File.Enabled,
			Path:       l.File.Path,
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxBackups: l.File.MaxBackups,
			MaxAgeDays: l.File.MaxAgeDays,
		},
		Remote: logx.RemoteConfig{
			Enabled:    l.Telegram.Enabled,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

// ResolvedSettingsPath returns SettingsPath or the default file name.
func (o *Options) ResolvedSettingsPath() string {
	if o == nil || strings.TrimSpace(o.SettingsPath) == "" {
		return DefaultSettingsFile
	}
	return strings.TrimSpace(o.SettingsPath)
}
