package app

import (
	"time"

	"js8bulletin/internal/eventbus"
	"js8bulletin/internal/js8call"
	"js8bulletin/internal/scheduler"
)

// Observer is the presentation surface. Callbacks run on the foreground
// goroutine draining the poster, never on the polling worker.
type Observer interface {
	OnLog(text, level string)
	OnConnectionStateChanged(state js8call.State)
	OnScheduleUpdated(next *time.Time)
	OnEmission(rec scheduler.EmissionRecord)
}

type nopObserver struct{}

func (nopObserver) OnLog(string, string)                   {}
func (nopObserver) OnConnectionStateChanged(js8call.State) {}
func (nopObserver) OnScheduleUpdated(*time.Time)           {}
func (nopObserver) OnEmission(scheduler.EmissionRecord)    {}

// ConnectionEvent is the bus payload for connection changes.
type ConnectionEvent struct {
	State string `json:"state"`
	Addr  string `json:"addr"`
}

// ScheduleEvent is the bus payload for schedule changes.
type ScheduleEvent struct {
	Active bool       `json:"active"`
	Next   *time.Time `json:"next,omitempty"`
}

// LogEvent is the bus payload for observer log lines.
type LogEvent struct {
	Text  string `json:"text"`
	Level string `json:"level"`
}

// deliver runs fn on the foreground goroutine when a poster is set, inline
// otherwise.
func (a *App) deliver(fn func(Observer)) {
	obs := a.observer
	if a.poster != nil && a.poster.Post(func() { fn(obs) }) {
		return
	}
	if a.poster == nil {
		fn(obs)
	}
}

func (a *App) publish(typ string, data any) {
	if a.bus != nil {
		a.bus.Publish(eventbus.Event{Type: typ, Time: a.now(), Data: data})
	}
}

// LogSink forwards rendered log lines to the observer. Pass it to
// logx.Service.SetObserver.
func (a *App) LogSink(text, level string) {
	a.publish(eventbus.TypeLog, LogEvent{Text: text, Level: level})
	a.deliver(func(o Observer) { o.OnLog(text, level) })
}

func (a *App) onConnectionState(addr string) func(js8call.State) {
	return func(s js8call.State) {
		a.metrics.SetConnection(s)
		a.publish(eventbus.TypeConnection, ConnectionEvent{State: s.String(), Addr: addr})
		a.deliver(func(o Observer) { o.OnConnectionStateChanged(s) })
	}
}

func (a *App) onSchedule(next *time.Time) {
	a.metrics.SetSchedule(next)
	a.publish(eventbus.TypeSchedule, ScheduleEvent{Active: next != nil, Next: next})
	a.deliver(func(o Observer) { o.OnScheduleUpdated(next) })
}
