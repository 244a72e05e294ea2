// Package metrics holds the Prometheus instruments for session, assistant and speech activity.
//
// Components receive a *Metrics and call its Observe helpers. A nil *Metrics is valid and records nothing,
// so tests and the chat command can run without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marine"

type Metrics struct {
	registry prometheus.Gatherer

	// Session lifecycle
	Logins        *prometheus.CounterVec
	Restores      *prometheus.CounterVec
	Logouts       prometheus.Counter
	ActiveSession prometheus.Gauge

	// Assistant
	Sends              *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	TranscriptLength   prometheus.Gauge

	// Speech channel
	SpeechTransitions *prometheus.CounterVec
	SpeechRejections  *prometheus.CounterVec

	// HTTP
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates every instrument on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "logins_total",
				Help:      "Login attempts by result (success, failed, busy, superseded).",
			},
			[]string{"result"},
		),
		Restores: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "restores_total",
				Help:      "Startup restores by result (restored, absent, malformed, error).",
			},
			[]string{"result"},
		),
		Logouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "logouts_total",
				Help:      "Total number of logout calls.",
			},
		),
		ActiveSession: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "active",
				Help:      "1 while a user is signed in.",
			},
		),
		Sends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "sends_total",
				Help:      "Assistant sends by outcome (replied, failed, cancelled, ignored).",
			},
			[]string{"outcome"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "generation_duration_seconds",
				Help:      "Time spent waiting on the response generator.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2, 3, 5, 10, 30},
			},
			[]string{"generator", "outcome"},
		),
		TranscriptLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "transcript_messages",
				Help:      "Number of messages in the current transcript.",
			},
		),
		SpeechTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "speech",
				Name:      "transitions_total",
				Help:      "Speech channel state transitions.",
			},
			[]string{"from", "to"},
		),
		SpeechRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "speech",
				Name:      "rejections_total",
				Help:      "Speech requests refused by reason (listening, unsupported).",
			},
			[]string{"reason"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	if g, ok := registry.(prometheus.Gatherer); ok {
		m.registry = g
	}
	return m
}

// NewRegistry creates an isolated registry, mostly for tests.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

// Handler serves the registry the metrics were created on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
	switch result {
	case "success":
		m.ActiveSession.Set(1)
	case "busy":
	default:
		m.ActiveSession.Set(0)
	}
}

func (m *Metrics) ObserveRestore(result string) {
	if m == nil {
		return
	}
	m.Restores.WithLabelValues(result).Inc()
	if result == "restored" {
		m.ActiveSession.Set(1)
	}
}

func (m *Metrics) ObserveLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
	m.ActiveSession.Set(0)
}

func (m *Metrics) ObserveSend(outcome string) {
	if m == nil {
		return
	}
	m.Sends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeneration(generator, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(generator, outcome).Observe(d.Seconds())
}

func (m *Metrics) SetTranscriptLength(n int) {
	if m == nil {
		return
	}
	m.TranscriptLength.Set(float64(n))
}

func (m *Metrics) ObserveSpeechTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.SpeechTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveSpeechRejection(reason string) {
	if m == nil {
		return
	}
	m.SpeechRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusLabel(status int) string {
	if status == 0 {
		status = http.StatusOK
	}
	return strconv.Itoa(status)
}
