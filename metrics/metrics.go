// Package metrics exposes Prometheus counters for the chat service.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder wraps the Prometheus metrics palaver emits.
type Recorder struct {
	registry *prom.Registry

	requestsTotal  *prom.CounterVec
	turnsTotal     *prom.CounterVec
	turnDuration   prom.Histogram
	streamedWords  prom.Counter
	activeSessions prom.Gauge
}

// NewRecorder constructs and registers the metric set on a fresh registry.
func NewRecorder() *Recorder {
	registry := prom.NewRegistry()

	r := &Recorder{
		registry: registry,
		requestsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "palaver",
			Name:      "http_requests_total",
			Help:      "HTTP requests by path and status code",
		}, []string{"path", "code"}),
		turnsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "palaver",
			Name:      "chat_turns_total",
			Help:      "Chat turns by provider and outcome",
		}, []string{"provider", "outcome"}),
		turnDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "palaver",
			Name:      "chat_turn_duration_seconds",
			Help:      "Duration of a full chat turn including the provider call",
			Buckets:   prom.DefBuckets,
		}),
		streamedWords: prom.NewCounter(prom.CounterOpts{
			Namespace: "palaver",
			Name:      "streamed_words_total",
			Help:      "Words re-emitted through the simulated stream",
		}),
		activeSessions: prom.NewGauge(prom.GaugeOpts{
			Namespace: "palaver",
			Name:      "active_sessions",
			Help:      "Chat sessions currently held in memory",
		}),
	}

	registry.MustRegister(
		r.requestsTotal,
		r.turnsTotal,
		r.turnDuration,
		r.streamedWords,
		r.activeSessions,
	)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// IncRequest counts one served HTTP request.
func (r *Recorder) IncRequest(path, code string) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(path, code).Inc()
}

// ObserveTurn records a completed (or failed) chat turn.
func (r *Recorder) ObserveTurn(provider, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.turnsTotal.WithLabelValues(provider, outcome).Inc()
	if outcome == "ok" {
		r.turnDuration.Observe(d.Seconds())
	}
}

// AddStreamedWords counts words emitted by the typewriter.
func (r *Recorder) AddStreamedWords(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.streamedWords.Add(float64(n))
}

// SessionOpened bumps the active session gauge.
func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.activeSessions.Inc()
}

// SessionClosed drops the active session gauge.
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.activeSessions.Dec()
}
