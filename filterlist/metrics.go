package filterlist

import (
	"github.com/prometheus/client_golang/prometheus"

	"agtree/ast"
)

// Metrics tracks loader activity.
//
// Metrics:
//   - agtree_filterlist_rules_total: parsed rules by category
//   - agtree_filterlist_parse_errors_total: lines that became InvalidRule
//   - agtree_filterlist_cache_hits_total / cache_misses_total: binary cache lookups
//   - agtree_filterlist_load_seconds: time spent loading one list
type Metrics struct {
	rulesTotal   *prometheus.CounterVec
	parseErrors  prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	loadDuration prometheus.Histogram
}

// NewMetrics creates loader metrics and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		rulesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agtree",
				Subsystem: "filterlist",
				Name:      "rules_total",
				Help:      "Total number of parsed rules by category",
			},
			[]string{"category"},
		),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agtree",
			Subsystem: "filterlist",
			Name:      "parse_errors_total",
			Help:      "Total number of lines that failed to parse",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agtree",
			Subsystem: "filterlist",
			Name:      "cache_hits_total",
			Help:      "Total number of lists served from the binary cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agtree",
			Subsystem: "filterlist",
			Name:      "cache_misses_total",
			Help:      "Total number of lists parsed because no usable cache entry existed",
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agtree",
			Subsystem: "filterlist",
			Name:      "load_seconds",
			Help:      "Time spent loading one filter list",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.rulesTotal,
		m.parseErrors,
		m.cacheHits,
		m.cacheMisses,
		m.loadDuration,
	)
	return m
}

func (m *Metrics) observeList(list *ast.FilterList) {
	if m == nil {
		return
	}
	for _, rule := range list.Children {
		m.rulesTotal.WithLabelValues(string(rule.Category())).Inc()
		if _, ok := rule.(*ast.InvalidRule); ok {
			m.parseErrors.Inc()
		}
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) observeDuration(seconds float64) {
	if m != nil {
		m.loadDuration.Observe(seconds)
	}
}
