package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"js8bulletin/internal/budget"
	"js8bulletin/internal/bulletinfile"
	"js8bulletin/internal/config"
	"js8bulletin/internal/js8call"
	"js8bulletin/internal/schedule"
	"js8bulletin/internal/scheduler"
	logx "js8bulletin/pkg/logx"
)

// HF amateur bands; frequencies outside are accepted with a warning.
const (
	minHFHz = 1_000_000
	maxHFHz = 30_000_000
)

// MessageResult describes the committed message after SetMessage.
type MessageResult struct {
	Text      string        `json:"text"`
	Report    budget.Report `json:"report"`
	Truncated bool          `json:"truncated"`
}

// SetMessage commits text, truncating it to the current limit.
func (a *App) SetMessage(text string) (MessageResult, error) {
	if a.sched.Active() {
		return MessageResult{}, ErrBusy
	}
	a.mu.Lock()
	out, truncated := a.budget.Commit(text)
	res := MessageResult{Text: out, Report: a.budget.Validate(out), Truncated: truncated}
	a.mu.Unlock()

	if truncated {
		a.log.Warn("message truncated to limit", logx.Int("limit", res.Report.Limit), logx.Int("chars", budget.Count(text)))
	}
	a.save()
	return res, nil
}

// LimitOptions are the operator's answers to the limit prompts.
type LimitOptions struct {
	// ConfirmLarge accepts a limit above budget.LargeLimit.
	ConfirmLarge bool
	// Truncate clamps a message that no longer fits. Without it the message
	// is kept and Overflow is reported.
	Truncate bool
}

type LimitResult struct {
	Old       int  `json:"old"`
	New       int  `json:"new"`
	Truncated bool `json:"truncated"`
	// Overflow is set when the kept message is longer than the new limit.
	Overflow bool `json:"overflow"`
}

// SetLimit changes the character ceiling.
func (a *App) SetLimit(n int, opt LimitOptions) (LimitResult, error) {
	if n < budget.MinLimit {
		return LimitResult{}, invalid("limit", "must be at least %d characters", budget.MinLimit)
	}
	if n > budget.LargeLimit && !opt.ConfirmLarge {
		return LimitResult{}, fmt.Errorf("%w: %d characters is about %s of airtime",
			ErrConfirmLargeLimit, n, budget.FormatDuration(budget.EstimateDurationSeconds(n)))
	}
	if a.sched.Active() {
		return LimitResult{}, ErrBusy
	}

	a.mu.Lock()
	res := LimitResult{Old: a.budget.Limit(), New: n}
	if err := a.budget.SetLimit(n); err != nil {
		a.mu.Unlock()
		return LimitResult{}, invalid("limit", "%v", err)
	}
	if a.budget.Overflows() {
		if opt.Truncate {
			a.budget.Truncate()
			res.Truncated = true
		} else {
			res.Overflow = true
		}
	}
	a.mu.Unlock()

	a.log.Info("character limit changed", logx.Int("old", res.Old), logx.Int("new", res.New), logx.Bool("truncated", res.Truncated))
	a.save()
	return res, nil
}

// SetSchedule selects the emission schedule.
func (a *App) SetSchedule(spec schedule.Spec) error {
	if err := spec.Validate(); err != nil {
		return invalid("interval", "%v", err)
	}
	if a.sched.Active() {
		return ErrBusy
	}
	a.mu.Lock()
	a.spec = spec
	a.mu.Unlock()
	a.log.Info("schedule selected", logx.String("schedule", spec.Label()))
	a.save()
	return nil
}

// Settings is the connection dialog.
type Settings struct {
	Host             string
	Port             int
	FrequencyHz      int64 // 0 = keep the rig's current frequency
	AutostartEnabled bool
}

type ApplyResult struct {
	Changes     []string `json:"changes"`
	Warnings    []string `json:"warnings,omitempty"`
	Reconnected bool     `json:"reconnected"`
	// ReconnectErr is set when the endpoint changed but the new one is not
	// reachable. The settings are applied regardless.
	ReconnectErr error `json:"-"`
}

// ApplySettings validates and stores the connection settings, reconnecting
// when host or port changed.
func (a *App) ApplySettings(ctx context.Context, s Settings) (ApplyResult, error) {
	host := strings.TrimSpace(s.Host)
	if host == "" {
		return ApplyResult{}, invalid("host", "cannot be empty")
	}
	if s.Port < 1 || s.Port > 65535 {
		return ApplyResult{}, invalid("port", "must be between 1 and 65535")
	}
	if s.FrequencyHz < 0 {
		return ApplyResult{}, invalid("frequency", "must be positive (0 = auto)")
	}

	var res ApplyResult
	if s.FrequencyHz > 0 && (s.FrequencyHz < minHFHz || s.FrequencyHz > maxHFHz) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("frequency %d Hz is outside the HF amateur bands (1-30 MHz)", s.FrequencyHz))
	}

	next := config.Connection{Host: host, Port: s.Port, FrequencyHz: s.FrequencyHz}
	a.mu.Lock()
	prev := a.conn
	prevAuto := a.autostart
	a.conn = next
	a.autostart = s.AutostartEnabled
	a.mu.Unlock()

	res.Changes = config.DescribeConnectionChange(prev, next)
	if prevAuto != s.AutostartEnabled {
		res.Changes = append(res.Changes, "Autostart: "+onOff(s.AutostartEnabled))
	}
	a.save()

	if len(res.Changes) == 0 {
		a.log.Info("settings unchanged")
	} else {
		a.log.Info("settings updated", logx.String("changes", strings.Join(res.Changes, " | ")))
	}
	for _, w := range res.Warnings {
		a.log.Warn(w)
	}

	if prev.Host != next.Host || prev.Port != next.Port {
		res.Reconnected = true
		if err := a.Reconnect(ctx); err != nil {
			res.ReconnectErr = err
		}
	}
	return res, nil
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// checkMessage is the precondition shared by Start, SendNow and Autostart.
func (a *App) checkMessage() error {
	a.mu.Lock()
	text := strings.TrimSpace(a.budget.Committed())
	limit := a.budget.Limit()
	a.mu.Unlock()

	if text == "" {
		return invalid("message", "is empty")
	}
	if n := budget.Count(text); n > limit {
		return invalid("message", "too long (%d/%d characters)", n, limit)
	}
	return nil
}

// StartOptions are the operator's answers to the start prompts.
type StartOptions struct {
	// AllowSimulation starts even when JS8Call stays unreachable after one
	// reconnect attempt; emissions are then only logged.
	AllowSimulation bool
}

// Start arms the selected schedule.
func (a *App) Start(ctx context.Context, opt StartOptions) error {
	if a.sched.Active() {
		return scheduler.ErrAlreadyRunning
	}
	if err := a.checkMessage(); err != nil {
		return err
	}
	if !a.Connected() {
		if err := a.Reconnect(ctx); err != nil {
			if !opt.AllowSimulation {
				return fmt.Errorf("start: %w", err)
			}
			a.log.Warn("JS8Call not connected, emissions will be simulated")
		}
	}

	a.mu.Lock()
	spec := a.spec
	a.mu.Unlock()
	return a.sched.Start(spec, a.transmit)
}

// Stop disarms the schedule. An in-flight emission completes.
func (a *App) Stop() {
	a.sched.Stop()
}

// Active reports whether the schedule is armed.
func (a *App) Active() bool { return a.sched.Active() }

// SendNow transmits the message once, outside the schedule. Unlike Start it
// never simulates: an unreachable endpoint is an error.
func (a *App) SendNow(ctx context.Context) (scheduler.EmissionRecord, error) {
	if err := a.checkMessage(); err != nil {
		return scheduler.EmissionRecord{}, err
	}
	if !a.Connected() {
		if err := a.Reconnect(ctx); err != nil {
			return scheduler.EmissionRecord{}, fmt.Errorf("send now: %w", err)
		}
	}
	rec := a.sched.SendOnce(a.transmit)
	if rec.Outcome == scheduler.OutcomeFailed {
		return rec, fmt.Errorf("send now: %s", rec.Error)
	}
	return rec, nil
}

// SendDirected transmits the message once, addressed to call
// (e.g. "@ALLCALL" or a callsign). The addressed text must fit the limit.
func (a *App) SendDirected(ctx context.Context, call string) (scheduler.EmissionRecord, error) {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" {
		return scheduler.EmissionRecord{}, invalid("callsign", "cannot be empty")
	}
	if err := a.checkMessage(); err != nil {
		return scheduler.EmissionRecord{}, err
	}
	a.mu.Lock()
	text := js8call.Directed(call, strings.TrimSpace(a.budget.Committed()))
	limit := a.budget.Limit()
	a.mu.Unlock()
	if n := budget.Count(text); n > limit {
		return scheduler.EmissionRecord{}, invalid("message", "too long once addressed (%d/%d characters)", n, limit)
	}
	if !a.Connected() {
		if err := a.Reconnect(ctx); err != nil {
			return scheduler.EmissionRecord{}, fmt.Errorf("send directed: %w", err)
		}
	}
	rec := a.sched.SendOnce(a.transmitTo(call))
	if rec.Outcome == scheduler.OutcomeFailed {
		return rec, fmt.Errorf("send directed: %s", rec.Error)
	}
	return rec, nil
}

// Autostart starts emissions when enabled in the settings. Any unmet
// precondition cancels it with a warning; started reports the outcome.
func (a *App) Autostart(ctx context.Context) (started bool, err error) {
	a.mu.Lock()
	enabled := a.autostart
	a.mu.Unlock()
	if !enabled {
		return false, nil
	}

	if err := a.checkMessage(); err != nil {
		a.log.Warn("autostart cancelled", logx.Err(err))
		return false, err
	}
	if !a.Connected() {
		a.log.Info("autostart: connecting to JS8Call")
		if err := a.Reconnect(ctx); err != nil {
			a.log.Warn("autostart cancelled: JS8Call not connected", logx.Err(err))
			return false, err
		}
	}
	a.log.Info("autostart: starting emissions")
	if err := a.Start(ctx, StartOptions{}); err != nil {
		return false, err
	}
	return true, nil
}

// NewBulletin clears the message and resets the interval.
func (a *App) NewBulletin() error {
	if a.sched.Active() {
		return ErrBusy
	}
	a.mu.Lock()
	a.budget.Commit("")
	a.spec = schedule.Default()
	a.currentFile = ""
	a.mu.Unlock()
	a.log.Info("new bulletin")
	a.save()
	return nil
}

type OpenResult struct {
	bulletinfile.Imported
	Path string `json:"path"`
	// AdoptedLimit is the file's limit when it replaced the current one.
	AdoptedLimit int `json:"adopted_limit,omitempty"`
}

// OpenBulletin loads a bulletin file. With adoptFileLimit a JSON file's own
// max_chars replaces the current limit before truncation.
func (a *App) OpenBulletin(path string, adoptFileLimit bool) (OpenResult, error) {
	if a.sched.Active() {
		return OpenResult{}, ErrBusy
	}
	im, err := bulletinfile.Read(path)
	if err != nil {
		a.log.Error("bulletin open failed", logx.String("file", filepath.Base(path)), logx.Err(err))
		return OpenResult{}, err
	}
	res := OpenResult{Path: path}

	a.mu.Lock()
	if adoptFileLimit && im.FileLimit >= budget.MinLimit && im.FileLimit != a.budget.Limit() {
		_ = a.budget.SetLimit(im.FileLimit)
		res.AdoptedLimit = im.FileLimit
	}
	im = im.Clamp(a.budget.Limit())
	a.budget.Commit(im.Message)
	if im.Format == bulletinfile.FormatJSON {
		if im.Schedule != nil {
			a.spec = *im.Schedule
		} else {
			a.spec = schedule.Default()
		}
	}
	a.currentFile = path
	a.mu.Unlock()
	res.Imported = im

	a.log.Info("bulletin opened", logx.String("file", filepath.Base(path)), logx.Int("chars", budget.Count(im.Message)))
	if im.Truncated {
		a.log.Warn("bulletin truncated to limit", logx.Int("original", im.OriginalChars), logx.Int("limit", budget.Count(im.Message)))
	}
	a.save()
	return res, nil
}

// SaveBulletin exports the bulletin to path, or to the current file when
// path is empty. The format follows the extension.
func (a *App) SaveBulletin(path string) (string, error) {
	a.mu.Lock()
	if strings.TrimSpace(path) == "" {
		path = a.currentFile
	}
	b := bulletinfile.Bulletin{
		Message:    a.budget.Committed(),
		Schedule:   a.spec,
		LimitChars: a.budget.Limit(),
		Connection: a.conn,
	}
	a.mu.Unlock()
	if path == "" {
		return "", ErrNoFile
	}

	if err := bulletinfile.Export(path, b, a.now()); err != nil {
		a.log.Error("bulletin save failed", logx.String("file", filepath.Base(path)), logx.Err(err))
		return "", err
	}
	a.mu.Lock()
	a.currentFile = path
	a.mu.Unlock()
	a.log.Info("bulletin saved", logx.String("file", filepath.Base(path)))
	return path, nil
}

// ReloadSettings applies a snapshot edited outside the app. It is ignored
// while emissions are active.
func (a *App) ReloadSettings(ctx context.Context, snap config.Snapshot) bool {
	if a.sched.Active() {
		a.log.Info("settings file changed while emissions are active, ignoring")
		return false
	}
	a.mu.Lock()
	prev := a.conn
	file := a.currentFile
	a.applySnapshotLocked(snap)
	a.markPersistedLocked()
	a.currentFile = file
	next := a.conn
	a.mu.Unlock()
	a.log.Info("settings reloaded from file", logx.String("schedule", snap.Schedule.Label()))

	if prev.Host != next.Host || prev.Port != next.Port {
		// Reconnect logs its own failure.
		_ = a.Reconnect(ctx)
	}
	return true
}
