// Package metrics exposes prometheus instrumentation for evaluations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
)

const (
	Namespace         = "truth"
	subsystemJudge    = "judge"
	subsystemPipeline = "pipeline"
	subsystemAPI      = "api"

	// OutcomeError labels judge calls that returned an error instead of a verdict
	OutcomeError = "error"
)

// Metrics holds the collectors of one process on a private registry
type Metrics struct {
	registry *prometheus.Registry

	judgeCalls   *prometheus.CounterVec
	judgeLatency *prometheus.HistogramVec
	claims       *prometheus.CounterVec
	iceRounds    prometheus.Histogram
	documents    *prometheus.CounterVec
	evalDuration prometheus.Histogram
	apiTime      *prometheus.HistogramVec
}

// New creates the collectors and registers them together with the Go and process collectors
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.judgeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemJudge,
		Name:      "calls_total",
		Help:      "Judge calls by model identity and outcome (verdict or error).",
	}, []string{"identity", "outcome"})

	m.judgeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemJudge,
		Name:      "duration_seconds",
		Help:      "Judge call latency by model identity.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"identity"})

	m.claims = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "claims_total",
		Help:      "Verified claims by final verdict.",
	}, []string{"verdict"})

	m.iceRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "ice_rounds",
		Help:      "Deliberation rounds used per claim.",
		Buckets:   []float64{1, 2, 3, 4, 5, 7, 10},
	})

	m.documents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "documents_total",
		Help:      "Evaluated documents by status.",
	}, []string{"status"})

	m.evalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "evaluation_duration_seconds",
		Help:      "Wall time of a full document evaluation.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	m.apiTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemAPI,
		Name:      "time_seconds",
		Help:      "Time to execute the api handler.",
	}, []string{"handler", "method", "status_code"})

	m.registry.MustRegister(m.judgeCalls, m.judgeLatency, m.claims, m.iceRounds, m.documents, m.evalDuration, m.apiTime)
	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// InstrumentJudge wraps j so every call is counted and timed under identity
func (m *Metrics) InstrumentJudge(identity string, j verify.Judge) verify.Judge {
	if m == nil {
		return j
	}
	return verify.JudgeFunc(func(ctx context.Context, req verify.JudgeRequest) (*verify.Judgment, error) {
		start := time.Now()
		judgment, err := j.Judge(ctx, req)
		m.judgeLatency.WithLabelValues(identity).Observe(time.Since(start).Seconds())

		outcome := OutcomeError
		if err == nil && judgment != nil {
			outcome = string(model.ParseVerdict(judgment.Verdict))
		}
		m.judgeCalls.WithLabelValues(identity, outcome).Inc()
		return judgment, err
	})
}

// ObserveClaim counts one final verdict
func (m *Metrics) ObserveClaim(v model.Verdict) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(string(v)).Inc()
}

// ObserveICERounds records the rounds one deliberation used
func (m *Metrics) ObserveICERounds(rounds int) {
	if m == nil {
		return
	}
	m.iceRounds.Observe(float64(rounds))
}

// ObserveDocument records a finished evaluation with status "success" or "error"
func (m *Metrics) ObserveDocument(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(status).Inc()
	m.evalDuration.Observe(elapsed.Seconds())
}

// ObserveAPIEndpointDuration records one handled API request
func (m *Metrics) ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64) {
	if m == nil {
		return
	}
	m.apiTime.WithLabelValues(handler, method, statusCode).Observe(elapsed)
}
