package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	MetricsNamespace         = "sharevault"
	MetricsSubsystemHTTP     = "http"
	MetricsSubsystemPipeline = "pipeline"
	MetricsSubsystemEnrich   = "enrich"

	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
)

type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64)

	ObserveLinksExtracted(count int)
	IncrementLookup(enricher, outcome string)
}

type metrics struct {
	registry *prometheus.Registry

	apiTime *prometheus.HistogramVec

	analysesTotal  prometheus.Counter
	linksExtracted prometheus.Histogram

	lookupsTotal *prometheus.CounterVec
}

// NewMetrics builds collectors on a private registry.
func NewMetrics() Metrics {
	m := &metrics{}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.apiTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemHTTP,
			Name:      "time_seconds",
			Help:      "Time to execute the HTTP handler.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"handler", "method", "status_code"},
	)
	m.registry.MustRegister(m.apiTime)

	m.analysesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemPipeline,
		Name:      "analyses_total",
		Help:      "Number of transcripts analysed.",
	})
	m.registry.MustRegister(m.analysesTotal)

	m.linksExtracted = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemPipeline,
		Name:      "links_per_transcript",
		Help:      "Distinct links found per transcript.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	})
	m.registry.MustRegister(m.linksExtracted)

	m.lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemEnrich,
			Name:      "lookups_total",
			Help:      "Metadata lookups by enricher and outcome.",
		},
		[]string{"enricher", "outcome"},
	)
	m.registry.MustRegister(m.lookupsTotal)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metrics) ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64) {
	m.apiTime.With(prometheus.Labels{"handler": handler, "method": method, "status_code": statusCode}).Observe(elapsed)
}

func (m *metrics) ObserveLinksExtracted(count int) {
	m.analysesTotal.Inc()
	m.linksExtracted.Observe(float64(count))
}

func (m *metrics) IncrementLookup(enricher, outcome string) {
	m.lookupsTotal.With(prometheus.Labels{"enricher": enricher, "outcome": outcome}).Inc()
}

type noop struct{}

// NewNoop returns a Metrics that records nothing.
func NewNoop() Metrics { return noop{} }

func (noop) GetRegistry() *prometheus.Registry                       { return prometheus.NewRegistry() }
func (noop) ObserveAPIEndpointDuration(string, string, string, float64) {}
func (noop) ObserveLinksExtracted(int)                                  {}
func (noop) IncrementLookup(string, string)                             {}
