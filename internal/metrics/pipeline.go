package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline instruments the classification pipeline. A nil *Pipeline is valid
// and records nothing, so wiring metrics stays optional for small CLIs.
type Pipeline struct {
	registry *prometheus.Registry

	classifyTotal    *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	oracleCalls      *prometheus.CounterVec
}

func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()

	classifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealerdocs",
			Subsystem: "classify",
			Name:      "items_total",
			Help:      "Classified items by source strategy and outcome.",
		},
		[]string{"source", "outcome"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dealerdocs",
			Subsystem: "classify",
			Name:      "item_duration_seconds",
			Help:      "Per-item classification duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dealerdocs",
			Subsystem: "classify",
			Name:      "in_flight",
			Help:      "Number of in-flight classification calls.",
		},
	)
	oracleCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealerdocs",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "External oracle/OCR calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	registry.MustRegister(classifyTotal, classifyDuration, inFlight, oracleCalls)

	return &Pipeline{
		registry:         registry,
		classifyTotal:    classifyTotal,
		classifyDuration: classifyDuration,
		inFlight:         inFlight,
		oracleCalls:      oracleCalls,
	}
}

// Registry exposes the underlying registry for scrape handlers.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Pipeline) ObserveItem(source, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.classifyTotal.WithLabelValues(source, outcome).Inc()
	p.classifyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Pipeline) ItemStarted() {
	if p == nil {
		return
	}
	p.inFlight.Inc()
}

func (p *Pipeline) ItemFinished() {
	if p == nil {
		return
	}
	p.inFlight.Dec()
}

func (p *Pipeline) ObserveExternalCall(operation, outcome string) {
	if p == nil {
		return
	}
	p.oracleCalls.WithLabelValues(operation, outcome).Inc()
}
