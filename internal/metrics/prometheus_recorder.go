package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	callDuration    *prom.HistogramVec
	callResults     *prom.CounterVec
	callRetries     *prom.CounterVec
	callExhausted   *prom.CounterVec
	planOutcomes    *prom.CounterVec
	diagramOutcomes *prom.CounterVec
	runDuration     prom.Histogram
	runOutcomes     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.callDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docgen",
			Name:      "call_duration_seconds",
			Help:      "Duration of individual AI calls",
			Buckets:   prom.DefBuckets,
		}, []string{"category"})
		pr.callResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docgen",
			Name:      "call_results_total",
			Help:      "AI call result counts by outcome",
		}, []string{"category", "result"})
		pr.callRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docgen",
			Name:      "call_retries_total",
			Help:      "Total AI call retries (transient failures)",
		}, []string{"category"})
		pr.callExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docgen",
			Name:      "call_retry_exhausted_total",
			Help:      "Count of calls where retries were exhausted",
		}, []string{"category"})
		pr.planOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docgen",
			Name:      "plan_outcomes_total",
			Help:      "Plan parse outcomes (parsed vs degraded)",
		}, []string{"outcome"})
		pr.diagramOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docgen",
			Name:      "diagram_outcomes_total",
			Help:      "Diagram render outcomes by backend",
		}, []string{"backend"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docgen",
			Name:      "run_duration_seconds",
			Help:      "Total generation run duration",
			Buckets:   prom.ExponentialBuckets(1, 2, 12),
		})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docgen",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		reg.MustRegister(pr.callDuration, pr.callResults, pr.callRetries, pr.callExhausted,
			pr.planOutcomes, pr.diagramOutcomes, pr.runDuration, pr.runOutcomes)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCallDuration(category string, d time.Duration) {
	if p == nil || p.callDuration == nil {
		return
	}
	p.callDuration.WithLabelValues(category).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCallResult(category string, result ResultLabel) {
	if p == nil || p.callResults == nil {
		return
	}
	p.callResults.WithLabelValues(category, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCallRetry(category string) {
	if p == nil || p.callRetries == nil {
		return
	}
	p.callRetries.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) IncCallExhausted(category string) {
	if p == nil || p.callExhausted == nil {
		return
	}
	p.callExhausted.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) IncPlanOutcome(outcome string) {
	if p == nil || p.planOutcomes == nil {
		return
	}
	p.planOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncDiagramOutcome(backend string) {
	if p == nil || p.diagramOutcomes == nil {
		return
	}
	p.diagramOutcomes.WithLabelValues(backend).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(outcome).Inc()
}
