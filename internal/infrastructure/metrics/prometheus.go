package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	durationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200}
	latencyBuckets  = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

// Recorder exports deployment and HTTP metrics under the composedeck
// namespace.
type Recorder struct {
	submitted      *prometheus.CounterVec
	finished       *prometheus.CounterVec
	active         prometheus.Gauge
	duration       *prometheus.HistogramVec
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

var _ ports.DeploymentMetrics = (*Recorder)(nil)

// New registers the collectors on reg. Collectors already registered by an
// earlier Recorder are reused.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "composedeck",
			Subsystem: "deploy",
			Name:      "jobs_submitted_total",
			Help:      "Deployments accepted, by compose command form",
		}, []string{"form"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "composedeck",
			Subsystem: "deploy",
			Name:      "jobs_finished_total",
			Help:      "Deployments that reached a terminal status",
		}, []string{"status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "composedeck",
			Subsystem: "deploy",
			Name:      "jobs_active",
			Help:      "Deployments currently pending or running",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "composedeck",
			Subsystem: "deploy",
			Name:      "job_duration_seconds",
			Help:      "Time from submission to terminal status",
			Buckets:   durationBuckets,
		}, []string{"status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "composedeck",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "composedeck",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   latencyBuckets,
		}, []string{"method", "route", "status"}),
	}

	r.submitted = register(reg, r.submitted)
	r.finished = register(reg, r.finished)
	r.active = register(reg, r.active)
	r.duration = register(reg, r.duration)
	r.requestTotal = register(reg, r.requestTotal)
	r.requestLatency = register(reg, r.requestLatency)
	return r
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Recorder) JobSubmitted(form domain.CommandForm) {
	r.submitted.WithLabelValues(string(form)).Inc()
	r.active.Inc()
}

func (r *Recorder) JobFinished(status domain.JobStatus, d time.Duration) {
	r.finished.WithLabelValues(string(status)).Inc()
	r.duration.WithLabelValues(string(status)).Observe(d.Seconds())
	r.active.Dec()
}

func (r *Recorder) RecordRequest(method, route string, status int, d time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(d.Seconds())
}
