// Package telegram is a send-only Telegram sink. It forwards selected log
// lines (as a logx.Notifier) and optional emission notices to one chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"js8bulletin/internal/config"
	"js8bulletin/internal/scheduler"
	logx "js8bulletin/pkg/logx"
)

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int
	Timeout  time.Duration
	// Emissions also posts a notice for every emission.
	Emissions bool
	// URL overrides the Bot API endpoint (tests, local bot API servers).
	URL string
}

// ConfigFrom maps the options file section. ok is false when the section is
// missing or has no token or chat.
func ConfigFrom(c *config.TelegramConfig) (cfg Config, ok bool) {
	if c == nil || strings.TrimSpace(c.Token) == "" || c.ChatID == 0 {
		return Config{}, false
	}
	return Config{
		Token:     strings.TrimSpace(c.Token),
		ChatID:    c.ChatID,
		ThreadID:  c.ThreadID,
		Timeout:   config.DurationOr(c.Timeout, 10*time.Second),
		Emissions: c.Emissions,
	}, true
}

type Sink struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

var _ logx.Notifier = (*Sink)(nil)

// New builds the sink without contacting Telegram; a bad token shows up on
// the first send.
func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.URL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: cfg.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{cfg: cfg, log: log, bot: b}, nil
}

// Notify implements logx.Notifier.
func (s *Sink) Notify(ctx context.Context, text string) error {
	return s.Send(ctx, text)
}

// NotifyEmission posts a short notice when emission notices are enabled.
func (s *Sink) NotifyEmission(ctx context.Context, rec scheduler.EmissionRecord) error {
	if s == nil || !s.cfg.Emissions {
		return nil
	}
	return s.Send(ctx, FormatEmission(rec))
}

// FormatEmission renders the notice text for rec.
func FormatEmission(rec scheduler.EmissionRecord) string {
	var b strings.Builder
	switch rec.Outcome {
	case scheduler.OutcomeSent:
		b.WriteString("Bulletin sent")
	case scheduler.OutcomeSimulated:
		b.WriteString("Bulletin simulated (JS8Call not connected)")
	default:
		b.WriteString("Bulletin FAILED")
	}
	if rec.Manual {
		b.WriteString(" [manual]")
	}
	fmt.Fprintf(&b, " at %s, %d chars", rec.Timestamp.Format("15:04:05"), rec.CharCount)
	if rec.FrequencyHz > 0 {
		fmt.Fprintf(&b, ", %.3f MHz", float64(rec.FrequencyHz)/1e6)
	}
	if rec.Error != "" {
		b.WriteString("\nerror: ")
		b.WriteString(rec.Error)
	}
	if rec.Text != "" {
		b.WriteString("\n\n")
		b.WriteString(rec.Text)
	}
	return b.String()
}

// Send posts text to the configured chat, split into Telegram-sized chunks.
func (s *Sink) Send(ctx context.Context, text string) error {
	if s == nil || s.bot == nil {
		return errors.New("telegram sink not configured")
	}
	chat := &tele.Chat{ID: s.cfg.ChatID}
	opt := &tele.SendOptions{ThreadID: s.cfg.ThreadID, DisableWebPagePreview: true}
	for _, chunk := range splitText(text, textLimit) {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := s.bot.Send(chat, chunk, opt); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

const textLimit = 4000

// splitText splits long messages into chunks that are safe to send to
// Telegram, preferring newline boundaries.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		// Skip leading newlines to avoid empty chunks.
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
