package observability

import (
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	configFallbacks *prometheus.CounterVec
	stockAdjusts    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agenda_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenda_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenda_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenda_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenda_policy_decisions_total",
				Help: "Time-window decisions by action and reason.",
			},
			[]string{"action", "reason"},
		),
		configFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenda_config_fallbacks_total",
				Help: "Time-window configurations resolved to their default.",
			},
			[]string{"key", "reason"},
		),
		stockAdjusts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenda_stock_adjustments_total",
				Help: "Inventory adjustments by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordDecision counts a cancel/reserve decision.
func (m *Metrics) RecordDecision(action string, reason domain.DecisionReason) {
	m.decisions.WithLabelValues(action, string(reason)).Inc()
}

// IncrConfigFallback counts a configuration that degraded to its default.
func (m *Metrics) IncrConfigFallback(key, reason string) {
	m.configFallbacks.WithLabelValues(key, reason).Inc()
}

// IncrStockAdjustment counts an inventory adjustment outcome.
func (m *Metrics) IncrStockAdjustment(outcome string) {
	m.stockAdjusts.WithLabelValues(outcome).Inc()
}

// GetPolicySnapshot returns cumulative policy counters for GET /v1/metrics/policy.
func (m *Metrics) GetPolicySnapshot() *domain.PolicyMetrics {
	var cancelChecks, cancelDenied, reserveChecks, reserveDenied float64
	for _, mf := range m.gather("agenda_policy_decisions_total") {
		for _, metric := range mf.GetMetric() {
			action, reason := labelValue(metric, "action"), labelValue(metric, "reason")
			v := metric.GetCounter().GetValue()
			denied := reason != string(domain.ReasonAllowed) && reason != string(domain.ReasonRuleInactive)
			switch action {
			case "cancel":
				cancelChecks += v
				if denied {
					cancelDenied += v
				}
			case "reserve":
				reserveChecks += v
				if denied {
					reserveDenied += v
				}
			}
		}
	}

	var fallbacks float64
	for _, mf := range m.gather("agenda_config_fallbacks_total") {
		for _, metric := range mf.GetMetric() {
			fallbacks += metric.GetCounter().GetValue()
		}
	}

	hits := getCounterValue(m.cacheHits, "permissions")
	misses := getCounterValue(m.cacheMisses, "permissions")

	snap := &domain.PolicyMetrics{
		CancelChecks:    int64(cancelChecks),
		CancelDenied:    int64(cancelDenied),
		ReserveChecks:   int64(reserveChecks),
		ReserveDenied:   int64(reserveDenied),
		ConfigFallbacks: int64(fallbacks),
		Period:          "all_time",
	}
	if total := cancelChecks + reserveChecks; total > 0 {
		snap.DeniedRate = (cancelDenied + reserveDenied) / total
	}
	if hits+misses > 0 {
		snap.PermissionHitRate = hits / (hits + misses)
	}
	return snap
}

func (m *Metrics) gather(name string) []*dto.MetricFamily {
	families, err := m.Registry.Gather()
	if err != nil {
		return nil
	}
	out := make([]*dto.MetricFamily, 0, 1)
	for _, mf := range families {
		if mf.GetName() == name {
			out = append(out, mf)
		}
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
