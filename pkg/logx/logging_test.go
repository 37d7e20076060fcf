package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type captured struct {
	mu    sync.Mutex
	lines []string
}

func (c *captured) observe(text, level string) {
	c.mu.Lock()
	c.lines = append(c.lines, level+"|"+text)
	c.mu.Unlock()
}

func (c *captured) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

type notifierFunc func(ctx context.Context, text string) error

func (f notifierFunc) Notify(ctx context.Context, text string) error { return f(ctx, text) }

func TestNewWriterFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "test"))
	log.Debug("hidden")
	log.Info("emission sent", Int("chars", 15), Int64("freq_hz", 7078000), Bool("manual", true), Err(errors.New("boom")), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	require.Equal(t, "emission sent", m["message"])
	require.Equal(t, "test", m["comp"])
	require.EqualValues(t, 15, m["chars"])
	require.Equal(t, "boom", m["err"])
	require.Contains(t, m["caller"], "logging_test.go:")
}

func TestZeroAndNopLoggers(t *testing.T) {
	t.Parallel()
	var zero Logger
	require.True(t, zero.IsZero())
	zero.Info("nothing happens")
	require.False(t, Nop().IsZero())
}

func TestObserverReceivesRenderedLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	obs := &captured{}
	svc, log := New(Config{Level: "debug", Observer: ObserverConfig{MinLevel: "info", RatePerSec: 1000}})
	svc.SetObserver(obs.observe)
	svc.Apply(Config{Level: "debug", Observer: ObserverConfig{MinLevel: "info", RatePerSec: 1000}})

	log.Debug("below the observer level")
	log.With(String("comp", "app")).Warn("message truncated", Int("limit", 70))
	log.Error("JS8Call not reachable", String("addr", "127.0.0.1:2442"))

	require.Equal(t, []string{
		"WARNING|message truncated limit=70",
		"ERROR|JS8Call not reachable addr=127.0.0.1:2442",
	}, obs.get())
	require.NoError(t, svc.Close())
}

func TestRemoteNotifier(t *testing.T) {
	defer goleak.VerifyNone(t)

	got := make(chan string, 4)
	svc, log := New(Config{Level: "info", Observer: ObserverConfig{MinLevel: "error"}})
	svc.SetNotifier(notifierFunc(func(_ context.Context, text string) error {
		got <- text
		return nil
	}))
	svc.Apply(Config{Level: "info", Remote: RemoteConfig{Enabled: true, MinLevel: "warn", RatePerSec: 100}})

	log.Info("not remote")
	log.Warn("settings file unreadable", String("file", "last.json"))

	select {
	case text := <-got:
		require.Equal(t, "[WARN] settings file unreadable file=last.json", text)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier not called")
	}
	require.NoError(t, svc.Close())
	require.Empty(t, got)
}

func TestRenderLine(t *testing.T) {
	t.Parallel()
	text, lvl := renderLine([]byte(`{"level":"info","time":"x","caller":"a.go:1","comp":"app","message":"hi","b":2,"a":"x"}`), 0)
	require.Equal(t, "hi a=x b=2", text)
	require.Equal(t, "info", lvl)

	text, lvl = renderLine([]byte("  plain text \n"), 0)
	require.Equal(t, "plain text", text)
	require.Empty(t, lvl)

	text, _ = renderLine([]byte(`{"message":"`+strings.Repeat("z", 50)+`"}`), 20)
	require.Len(t, text, 20)
	require.True(t, strings.HasSuffix(text, "..."))
}

func TestLevelNames(t *testing.T) {
	t.Parallel()
	require.Equal(t, "DEBUG", LevelName(LevelDebug))
	require.Equal(t, "INFO", LevelName(LevelInfo))
	require.Equal(t, "WARNING", LevelName(LevelWarn))
	require.Equal(t, "ERROR", LevelName(LevelError))
	require.Equal(t, LevelWarn, parseLevel("warning", LevelInfo))
	require.Equal(t, LevelInfo, parseLevel("bogus", LevelInfo))
}
