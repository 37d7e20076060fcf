package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"js8bulletin/internal/eventbus"
	"js8bulletin/internal/js8call"
	"js8bulletin/internal/scheduler"
	logx "js8bulletin/pkg/logx"
)

// historyTimeout bounds a single history append from the worker.
const historyTimeout = 2 * time.Second

// Connected reports whether the live client is up.
func (a *App) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil && a.client.Connected()
}

// Reconnect drops the live client (if any) and dials the configured
// endpoint. On failure no client remains.
func (a *App) Reconnect(ctx context.Context) error {
	a.connMu.Lock()
	defer a.connMu.Unlock()

	a.mu.Lock()
	old := a.client
	a.client = nil
	conn := a.conn
	a.mu.Unlock()

	a.metrics.IncReconnect()
	if old != nil {
		a.log.Info("reconnecting to JS8Call", logx.String("addr", js8call.Addr(conn.Host, conn.Port)))
		old.Disconnect()
	}

	addr := js8call.Addr(conn.Host, conn.Port)
	c, err := js8call.Dial(ctx, conn.Host, conn.Port,
		js8call.WithLogger(a.log.With(logx.String("comp", "js8call"))),
		js8call.WithStateHook(a.onConnectionState(addr)),
	)
	if err != nil {
		a.log.Error("JS8Call not reachable", logx.String("addr", addr), logx.Err(err))
		if old == nil {
			// No client existed to report the state change itself.
			a.onConnectionState(addr)(js8call.Disconnected)
		}
		return err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		c.Disconnect()
		return errors.New("app closed")
	}
	a.client = c
	a.mu.Unlock()
	a.log.Info("JS8Call connected", logx.String("addr", addr))
	return nil
}

// TestConnection dials host:port and hangs up without touching the live
// client. Empty host or zero port use the configured endpoint.
func (a *App) TestConnection(ctx context.Context, host string, port int) error {
	a.mu.Lock()
	if strings.TrimSpace(host) == "" {
		host = a.conn.Host
	}
	if port == 0 {
		port = a.conn.Port
	}
	a.mu.Unlock()
	if port < 1 || port > 65535 {
		return invalid("port", "must be between 1 and 65535")
	}

	addr := js8call.Addr(host, port)
	if err := js8call.Probe(ctx, host, port); err != nil {
		a.log.Warn("connection test failed", logx.String("addr", addr), logx.Err(err))
		return err
	}
	a.log.Info("connection test succeeded", logx.String("addr", addr))
	return nil
}

// transmit sends the committed message on the live client, or reports a
// simulation when there is none. A failed write triggers one reconnect.
func (a *App) transmit(ctx context.Context) (scheduler.Transmission, error) {
	return a.transmitTo("")(ctx)
}

// transmitTo addresses the message to call when it is not empty.
func (a *App) transmitTo(call string) scheduler.TransmitFunc {
	return func(ctx context.Context) (scheduler.Transmission, error) {
		return a.send(ctx, call)
	}
}

func (a *App) send(ctx context.Context, call string) (scheduler.Transmission, error) {
	a.mu.Lock()
	tr := scheduler.Transmission{
		Text:        strings.TrimSpace(a.budget.Committed()),
		FrequencyHz: a.conn.FrequencyHz,
	}
	c := a.client
	a.mu.Unlock()
	if call != "" {
		tr.Text = js8call.Directed(call, tr.Text)
	}

	if c == nil || !c.Connected() {
		tr.Simulated = true
		return tr, nil
	}

	if tr.FrequencyHz > 0 {
		if err := c.SetFrequency(tr.FrequencyHz); err != nil {
			return tr, a.sendFailed(ctx, err)
		}
	}
	if err := c.SendMessage(tr.Text, tr.FrequencyHz); err != nil {
		return tr, a.sendFailed(ctx, err)
	}
	return tr, nil
}

func (a *App) sendFailed(ctx context.Context, err error) error {
	a.log.Error("transmission failed, check JS8Call", logx.Err(err))
	if rerr := a.Reconnect(ctx); rerr != nil {
		return fmt.Errorf("%w (reconnect failed: %v)", err, rerr)
	}
	return err
}

// onEmission runs on the worker (or the SendNow caller).
func (a *App) onEmission(rec scheduler.EmissionRecord) {
	a.metrics.ObserveEmission(rec)

	if a.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		if err := a.history.Append(ctx, rec); err != nil {
			a.log.Warn("history append failed", logx.String("id", rec.ID), logx.Err(err))
		}
		cancel()
	}
	if a.notifier != nil {
		n := a.notifier
		a.sup.Go0("emission.notify", func(ctx context.Context) {
			nctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()
			if err := n.NotifyEmission(nctx, rec); err != nil {
				a.log.Debug("emission notice failed", logx.Err(err))
			}
		})
	}

	a.publish(eventbus.TypeEmission, rec)
	a.deliver(func(o Observer) { o.OnEmission(rec) })
}
