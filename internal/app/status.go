package app

import (
	"context"
	"time"

	"js8bulletin/internal/budget"
	"js8bulletin/internal/config"
	"js8bulletin/internal/js8call"
	"js8bulletin/internal/schedule"
	"js8bulletin/internal/scheduler"
)

// Status is the dashboard view. It is JSON-serializable for /status.
type Status struct {
	Active        bool       `json:"active"`
	Schedule      string     `json:"schedule"`
	ScheduleLabel string     `json:"schedule_label"`
	Next          *time.Time `json:"next,omitempty"`
	NextIn        string     `json:"next_in,omitempty"`

	Connected  bool              `json:"connected"`
	Addr       string            `json:"addr"`
	Connection config.Connection `json:"connection"`
	Frequency  string            `json:"frequency"`

	Message     string        `json:"message"`
	Report      budget.Report `json:"report"`
	Budget      string        `json:"budget"`
	LimitPreset string        `json:"limit_preset"`
	MaxAirtime  string        `json:"max_airtime"`

	AutostartEnabled bool                      `json:"autostart_enabled"`
	CurrentFile      string                    `json:"current_file,omitempty"`
	LastEmission     *scheduler.EmissionRecord `json:"last_emission,omitempty"`
}

// Status collects the current state.
func (a *App) Status() Status {
	rt := a.sched.Runtime()

	a.mu.Lock()
	st := a.stateLocked()
	report := a.budget.Validate(st.Message)
	connected := a.client != nil && a.client.Connected()
	a.mu.Unlock()

	spec := st.Schedule
	if rt.Active {
		spec = rt.Spec
	}
	out := Status{
		Active:           rt.Active,
		Schedule:         spec.String(),
		ScheduleLabel:    spec.Label(),
		Next:             rt.Next,
		Connected:        connected,
		Addr:             js8call.Addr(st.Connection.Host, st.Connection.Port),
		Connection:       st.Connection,
		Frequency:        config.FormatFrequency(st.Connection.FrequencyHz),
		Message:          st.Message,
		Report:           report,
		Budget:           report.Status.String(),
		LimitPreset:      budget.PresetName(st.LimitChars),
		MaxAirtime:       budget.FormatDuration(budget.EstimateDurationSeconds(st.LimitChars)),
		AutostartEnabled: st.AutostartEnabled,
		CurrentFile:      st.CurrentFile,
		LastEmission:     rt.Last,
	}
	if rt.Next != nil {
		out.NextIn = schedule.Until(*rt.Next, a.now())
	}
	return out
}

// Preview lists the next n trigger times of the armed (or selected) schedule.
func (a *App) Preview(n int) []time.Time {
	a.mu.Lock()
	spec := a.spec
	a.mu.Unlock()
	return a.sched.Preview(spec, n)
}

// History returns up to n recent emissions, newest first.
func (a *App) History(ctx context.Context, n int) ([]scheduler.EmissionRecord, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.Recent(ctx, n)
}
