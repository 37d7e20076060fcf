package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"js8bulletin/internal/js8call"
	"js8bulletin/internal/scheduler"
)

func TestObserveEmission(t *testing.T) {
	t.Parallel()
	m := New()
	m.ObserveEmission(scheduler.EmissionRecord{Outcome: scheduler.OutcomeSent, CharCount: 42})
	m.ObserveEmission(scheduler.EmissionRecord{Outcome: scheduler.OutcomeSent, Manual: true, CharCount: 12})
	m.ObserveEmission(scheduler.EmissionRecord{Outcome: scheduler.OutcomeSimulated})

	require.Equal(t, 1.0, testutil.ToFloat64(m.emissions.WithLabelValues("sent", "scheduled")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.emissions.WithLabelValues("sent", "manual")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.emissions.WithLabelValues("simulated", "scheduled")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.lastChars))
}

func TestConnectionAndSchedule(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetConnection(js8call.Connected)
	require.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	m.SetConnection(js8call.Disconnected)
	require.Equal(t, 0.0, testutil.ToFloat64(m.connected))

	next := time.Unix(1_800_000_000, 0)
	m.SetSchedule(&next)
	require.Equal(t, 1.0, testutil.ToFloat64(m.active))
	require.Equal(t, 1.8e9, testutil.ToFloat64(m.nextTrigger))
	m.SetSchedule(nil)
	require.Equal(t, 0.0, testutil.ToFloat64(m.active))
	require.Equal(t, 0.0, testutil.ToFloat64(m.nextTrigger))

	m.IncReconnect()
	require.Equal(t, 1.0, testutil.ToFloat64(m.reconnects))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics
	m.ObserveEmission(scheduler.EmissionRecord{})
	m.SetConnection(js8call.Connected)
	m.SetSchedule(nil)
	m.IncReconnect()
	require.Nil(t, m.Registry())

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/status/{part}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status/x")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/status/{part}", "418")))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.True(t, strings.Contains(string(body), "js8bulletin_emissions_total") || strings.Contains(string(body), "js8bulletin_js8call_connected"))
}
