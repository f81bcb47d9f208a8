package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter keeps running totals across collect cycles in Prometheus form.
type Exporter struct {
	registry *prometheus.Registry

	found        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	saved        prometheus.Counter
	documents    *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	cycles       prometheus.Counter
	lastCycle    prometheus.Gauge
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		found: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proxyscraper",
			Name:      "proxies_found_total",
			Help:      "Descriptors decoded from collected documents.",
		}, []string{"protocol"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proxyscraper",
			Name:      "decode_failures_total",
			Help:      "Candidate links that matched a grammar but failed to decode.",
		}, []string{"protocol"}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proxyscraper",
			Name:      "proxies_saved_total",
			Help:      "Descriptors inserted into the database.",
		}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proxyscraper",
			Name:      "source_documents_total",
			Help:      "Documents returned by each collector.",
		}, []string{"source"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proxyscraper",
			Name:      "source_errors_total",
			Help:      "Collector runs that ended in an error.",
		}, []string{"source"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proxyscraper",
			Name:      "collect_cycles_total",
			Help:      "Completed collect cycles.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "proxyscraper",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last collect cycle finished.",
		}),
	}
	e.registry.MustRegister(e.found, e.failures, e.saved, e.documents, e.sourceErrors, e.cycles, e.lastCycle)
	return e
}

// Observe adds the totals of one finished cycle.
func (e *Exporter) Observe(c *Collector) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for protocol, n := range c.found {
		e.found.WithLabelValues(protocol).Add(float64(n))
	}
	for protocol, n := range c.failures {
		e.failures.WithLabelValues(protocol).Add(float64(n))
	}
	e.saved.Add(float64(c.saved))
	for _, s := range c.sources {
		if s.err != nil {
			e.sourceErrors.WithLabelValues(s.name).Inc()
			continue
		}
		e.documents.WithLabelValues(s.name).Add(float64(s.docs))
	}
	e.cycles.Inc()
	e.lastCycle.SetToCurrentTime()
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
