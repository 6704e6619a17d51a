package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records throughput and outcomes for the replenishment pipeline.
type PipelineMetrics struct {
	signalsEmitted   *prometheus.CounterVec
	requestsCreated  *prometheus.CounterVec
	allocations      *prometheus.CounterVec
	plansExecuted    prometheus.Counter
	consumerDuration *prometheus.HistogramVec
	consumerFailures *prometheus.CounterVec
	advisorFallbacks prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	signalsEmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "restock_signals_emitted",
		Help: "Restock signals emitted by the threshold engine, by priority.",
	}, []string{"priority"})
	requestsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_requests_created",
		Help: "Fulfillment requests created by the aggregator, by priority.",
	}, []string{"priority"})
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_allocations_total",
		Help: "Stock allocation attempts, by outcome.",
	}, []string{"outcome"})
	plansExecuted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_plans_executed",
		Help: "Delivery plans moved into execution.",
	})
	consumerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_handle_duration_seconds",
		Help:    "Duration of event handling per consumer in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	consumerFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_handle_failures",
		Help: "Event handling failures per consumer.",
	}, []string{"consumer"})
	advisorFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advisor_fallbacks_total",
		Help: "Optimization requests that fell back to the deterministic plan.",
	})
	reg.MustRegister(signalsEmitted, requestsCreated, allocations, plansExecuted, consumerDuration, consumerFailures, advisorFallbacks)
	return &PipelineMetrics{
		signalsEmitted:   signalsEmitted,
		requestsCreated:  requestsCreated,
		allocations:      allocations,
		plansExecuted:    plansExecuted,
		consumerDuration: consumerDuration,
		consumerFailures: consumerFailures,
		advisorFallbacks: advisorFallbacks,
	}
}

// IncSignalEmitted counts an emitted restock signal for the given priority.
func (p *PipelineMetrics) IncSignalEmitted(priority string) {
	if p == nil || p.signalsEmitted == nil {
		return
	}
	p.signalsEmitted.WithLabelValues(normalizeLabel(priority)).Inc()
}

// IncRequestCreated counts a fulfillment request created at the given priority.
func (p *PipelineMetrics) IncRequestCreated(priority string) {
	if p == nil || p.requestsCreated == nil {
		return
	}
	p.requestsCreated.WithLabelValues(normalizeLabel(priority)).Inc()
}

// IncAllocation counts an allocation attempt outcome ("allocated", "partial", "insufficient").
func (p *PipelineMetrics) IncAllocation(outcome string) {
	if p == nil || p.allocations == nil {
		return
	}
	p.allocations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPlanExecuted counts a delivery plan entering execution.
func (p *PipelineMetrics) IncPlanExecuted() {
	if p == nil || p.plansExecuted == nil {
		return
	}
	p.plansExecuted.Inc()
}

// ObserveConsumer records how long the named consumer spent handling one event.
func (p *PipelineMetrics) ObserveConsumer(consumer string, duration time.Duration) {
	if p == nil || p.consumerDuration == nil {
		return
	}
	p.consumerDuration.WithLabelValues(normalizeLabel(consumer)).Observe(duration.Seconds())
}

// IncConsumerFailure counts a handler error for the named consumer.
func (p *PipelineMetrics) IncConsumerFailure(consumer string) {
	if p == nil || p.consumerFailures == nil {
		return
	}
	p.consumerFailures.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// IncAdvisorFallback counts an optimization round that used the fallback plan.
func (p *PipelineMetrics) IncAdvisorFallback() {
	if p == nil || p.advisorFallbacks == nil {
		return
	}
	p.advisorFallbacks.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
