// Package metrics exposes transmitter state as Prometheus metrics.
//
// All methods are safe on a nil *Metrics so callers can run without a
// registry.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"js8bulletin/internal/js8call"
	"js8bulletin/internal/scheduler"
)

const namespace = "js8bulletin"

type Metrics struct {
	reg *prometheus.Registry

	emissions   *prometheus.CounterVec
	lastChars   prometheus.Gauge
	connected   prometheus.Gauge
	reconnects  prometheus.Counter
	active      prometheus.Gauge
	nextTrigger prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpActive   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		emissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emissions_total",
			Help:      "Bulletin emissions by outcome and trigger.",
		}, []string{"outcome", "trigger"}),
		lastChars: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_emission_chars",
			Help:      "Character count of the most recent emission.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "js8call_connected",
			Help:      "1 while the JS8Call API connection is up.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "js8call_reconnects_total",
			Help:      "Reconnect attempts to the JS8Call API.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_active",
			Help:      "1 while the periodic schedule is running.",
		}),
		nextTrigger: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_next_trigger_timestamp_seconds",
			Help:      "Unix time of the next scheduled emission, 0 when idle.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diag",
			Name:      "requests_total",
			Help:      "Diagnostics HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "diag",
			Name:      "request_duration_seconds",
			Help:      "Diagnostics HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "diag",
			Name:      "active_requests",
			Help:      "In-flight diagnostics HTTP requests.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.emissions, m.lastChars, m.connected, m.reconnects, m.active, m.nextTrigger,
		m.httpRequests, m.httpDuration, m.httpActive,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveEmission(rec scheduler.EmissionRecord) {
	if m == nil {
		return
	}
	trigger := "scheduled"
	if rec.Manual {
		trigger = "manual"
	}
	m.emissions.WithLabelValues(string(rec.Outcome), trigger).Inc()
	m.lastChars.Set(float64(rec.CharCount))
}

func (m *Metrics) SetConnection(s js8call.State) {
	if m == nil {
		return
	}
	if s == js8call.Connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// SetSchedule records whether the schedule runs and its next trigger.
func (m *Metrics) SetSchedule(next *time.Time) {
	if m == nil {
		return
	}
	if next == nil {
		m.active.Set(0)
		m.nextTrigger.Set(0)
		return
	}
	m.active.Set(1)
	m.nextTrigger.Set(float64(next.Unix()))
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack is needed by the websocket upgrade on /events.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.written = true
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware counts requests per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpActive.Inc()
		defer m.httpActive.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
	})
}
