package config

import (
	"fmt"
	"strings"

	logx "js8bulletin/pkg/logx"
)

// SummarizeOptionsChange returns the changed sections and safe structured
// attrs for logging. Tokens are never included.
func SummarizeOptionsChange(oldOpts, newOpts *Options) ([]string, []logx.Field) {
	if oldOpts == nil {
		oldOpts = &Options{}
	}
	if newOpts == nil {
		newOpts = &Options{}
	}
	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldOpts.Logging != newOpts.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newOpts.Logging.Level),
			logx.Bool("logging.console", newOpts.Logging.Console),
			logx.Bool("logging.file_enabled", newOpts.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newOpts.Logging.Telegram.Enabled),
		)
	}

	if strings.TrimSpace(oldOpts.SettingsPath) != strings.TrimSpace(newOpts.SettingsPath) ||
		oldOpts.WatchSettings != newOpts.WatchSettings {
		changed = append(changed, "settings")
		attrs = append(attrs, logx.String("settings.path", newOpts.ResolvedSettingsPath()))
	}

	if strings.TrimSpace(oldOpts.PollInterval) != strings.TrimSpace(newOpts.PollInterval) {
		changed = append(changed, "poll_interval")
		attrs = append(attrs, logx.String("poll_interval", newOpts.PollInterval))
	}

	if derefStorage(oldOpts.Storage) != derefStorage(newOpts.Storage) {
		changed = append(changed, "storage")
		ns := derefStorage(newOpts.Storage)
		attrs = append(attrs,
			logx.String("storage.driver", ns.Driver),
			logx.String("storage.path", ns.Path),
		)
	}

	od, nd := oldOpts.Diag, newOpts.Diag
	if od.Enabled != nd.Enabled || od.Addr != nd.Addr || od.Pprof != nd.Pprof ||
		od.AllowInsecure != nd.AllowInsecure || od.ReadTimeout != nd.ReadTimeout ||
		od.IdleTimeout != nd.IdleTimeout || (od.Token != "") != (nd.Token != "") {
		changed = append(changed, "diag")
		attrs = append(attrs,
			logx.Bool("diag.enabled", nd.Enabled),
			logx.String("diag.addr", nd.Addr),
			logx.Bool("diag.token_set", nd.Token != ""),
		)
	}

	ot, nt := derefTelegram(oldOpts.Telegram), derefTelegram(newOpts.Telegram)
	if ot.ChatID != nt.ChatID || ot.ThreadID != nt.ThreadID || ot.Timeout != nt.Timeout ||
		ot.Emissions != nt.Emissions || (ot.Token != "") != (nt.Token != "") {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", nt.Token != ""),
			logx.Int64("telegram.chat_id", nt.ChatID),
		)
	}
	return changed, attrs
}

func derefStorage(s *StorageConfig) StorageConfig {
	if s == nil {
		return StorageConfig{}
	}
	return *s
}

func derefTelegram(t *TelegramConfig) TelegramConfig {
	if t == nil {
		return TelegramConfig{}
	}
	return *t
}

// DescribeConnectionChange lists operator-facing changes between two
// connection settings, e.g. "Host: 127.0.0.1 -> 10.0.0.5".
func DescribeConnectionChange(oldC, newC Connection) []string {
	var out []string
	if oldC.Host != newC.Host {
		out = append(out, fmt.Sprintf("Host: %s -> %s", oldC.Host, newC.Host))
	}
	if oldC.Port != newC.Port {
		out = append(out, fmt.Sprintf("Port: %d -> %d", oldC.Port, newC.Port))
	}
	if oldC.FrequencyHz != newC.FrequencyHz {
		out = append(out, fmt.Sprintf("Frequency: %s -> %s", FormatFrequency(oldC.FrequencyHz), FormatFrequency(newC.FrequencyHz)))
	}
	return out
}

// FormatFrequency renders a dial frequency for logs: "Auto" for 0,
// otherwise Hz with the MHz value.
func FormatFrequency(hz int64) string {
	if hz <= 0 {
		return "Auto"
	}
	return fmt.Sprintf("%d Hz (%.3f MHz)", hz, float64(hz)/1e6)
}
