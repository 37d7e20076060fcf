package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"js8bulletin/internal/config"
	"js8bulletin/internal/scheduler"
	logx "js8bulletin/pkg/logx"
)

type fakeAPI struct {
	mu    sync.Mutex
	texts []string
	paths []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	if t, ok := body["text"].(string); ok {
		f.texts = append(f.texts, t)
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":42,"type":"group"},"date":0,"text":"x"}}`))
}

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func newTestSink(t *testing.T, emissions bool) (*Sink, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	s, err := New(Config{Token: "123:abc", ChatID: 42, Timeout: 5 * time.Second, Emissions: emissions, URL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	return s, api
}

func TestNotifySends(t *testing.T) {
	t.Parallel()
	s, api := newTestSink(t, false)
	require.NoError(t, s.Notify(context.Background(), "[ERROR] emission failed"))
	require.Equal(t, []string{"[ERROR] emission failed"}, api.sent())
	require.True(t, strings.HasSuffix(api.paths[0], "/sendMessage"))
}

func TestNotifyEmissionRespectsFlag(t *testing.T) {
	t.Parallel()
	rec := scheduler.EmissionRecord{
		Timestamp:   time.Date(2026, 5, 1, 12, 15, 0, 0, time.UTC),
		Text:        "QST net tonight",
		CharCount:   15,
		FrequencyHz: 14078000,
		Outcome:     scheduler.OutcomeSent,
	}

	off, api := newTestSink(t, false)
	require.NoError(t, off.NotifyEmission(context.Background(), rec))
	require.Empty(t, api.sent())

	on, api := newTestSink(t, true)
	require.NoError(t, on.NotifyEmission(context.Background(), rec))
	sent := api.sent()
	require.Len(t, sent, 1)
	require.Contains(t, sent[0], "Bulletin sent at 12:15:00, 15 chars, 14.078 MHz")
	require.Contains(t, sent[0], "QST net tonight")
}

func TestFormatEmissionFailure(t *testing.T) {
	t.Parallel()
	got := FormatEmission(scheduler.EmissionRecord{Outcome: scheduler.OutcomeFailed, Manual: true, Error: "broken pipe"})
	require.True(t, strings.HasPrefix(got, "Bulletin FAILED [manual]"))
	require.Contains(t, got, "error: broken pipe")
}

func TestSplitText(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"short"}, splitText("short", 10))

	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	require.Equal(t, []string{strings.Repeat("a", 8), strings.Repeat("b", 8)}, splitText(long, 10))

	chunks := splitText(strings.Repeat("x", 25), 10)
	require.Len(t, chunks, 3)
	require.Equal(t, 5, len(chunks[2]))
}

func TestConfigFrom(t *testing.T) {
	t.Parallel()
	_, ok := ConfigFrom(nil)
	require.False(t, ok)
	_, ok = ConfigFrom(&config.TelegramConfig{Token: "t"})
	require.False(t, ok)
	c, ok := ConfigFrom(&config.TelegramConfig{Token: " t ", ChatID: -100, Timeout: "3s", Emissions: true})
	require.True(t, ok)
	require.Equal(t, "t", c.Token)
	require.Equal(t, 3*time.Second, c.Timeout)
	require.True(t, c.Emissions)

	_, err := New(Config{Token: "x"}, logx.Nop())
	require.Error(t, err)
}
