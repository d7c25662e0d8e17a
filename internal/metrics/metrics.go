// Package metrics exposes Prometheus counters for the interview service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "greenroom"
	subsystem = "interview"
)

// Recorder holds the service's Prometheus metrics.
type Recorder struct {
	registry *prometheus.Registry

	followupRequests  prometheus.Counter
	followupEmpty     prometheus.Counter
	followupFailures  prometheus.Counter
	summarizeRequests prometheus.Counter
	sessionsPersisted prometheus.Counter
	persistFailures   prometheus.Counter
	httpRequests      *prometheus.CounterVec
}

// New creates a Recorder on its own registry, keeping default Go runtime
// collectors out of the scrape.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		followupRequests: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "followup_requests_total",
			Help:      "Total follow-up generation requests handled",
		}),
		followupEmpty: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "followup_empty_total",
			Help:      "Follow-up requests that produced no questions",
		}),
		followupFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "followup_failures_total",
			Help:      "Follow-up generation requests that failed upstream",
		}),
		summarizeRequests: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "summarize_requests_total",
			Help:      "Total summarization requests handled",
		}),
		sessionsPersisted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_persisted_total",
			Help:      "Finished session records accepted by the store",
		}),
		persistFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "persist_failures_total",
			Help:      "Session persistence attempts that failed",
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}
}

// Handler returns the /metrics scrape handler for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) FollowupRequested()  { r.followupRequests.Inc() }
func (r *Recorder) FollowupEmpty()      { r.followupEmpty.Inc() }
func (r *Recorder) FollowupFailed()     { r.followupFailures.Inc() }
func (r *Recorder) SummarizeRequested() { r.summarizeRequests.Inc() }
func (r *Recorder) SessionPersisted()   { r.sessionsPersisted.Inc() }
func (r *Recorder) PersistFailed()      { r.persistFailures.Inc() }

// HTTPRequest records one handled request.
func (r *Recorder) HTTPRequest(route, status string) {
	r.httpRequests.WithLabelValues(route, status).Inc()
}
