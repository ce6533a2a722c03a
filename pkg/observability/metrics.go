package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the storeflow collectors.
type Metrics struct {
	NodeEntries      *prometheus.CounterVec
	InputRejections  *prometheus.CounterVec
	ConfigFallbacks  *prometheus.CounterVec
	ActionRuns       *prometheus.CounterVec
	RuleFirings      *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
	CacheReloads     prometheus.Counter
	CacheVersion     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg. When reg is
// also a Gatherer, Handler serves it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeflow_node_entries_total",
			Help: "Total number of node entries",
		}, []string{"node", "kind"}),
		InputRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeflow_input_rejections_total",
			Help: "Total number of rejected input values",
		}, []string{"node"}),
		ConfigFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeflow_config_fallbacks_total",
			Help: "Total number of configuration errors handled by the fallback policy",
		}, []string{"node"}),
		ActionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeflow_action_runs_total",
			Help: "Total number of executed node actions",
		}, []string{"action"}),
		RuleFirings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeflow_rule_firings_total",
			Help: "Total number of automation rules executed",
		}, []string{"rule_id"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeflow_delivery_failures_total",
			Help: "Total number of failed transport calls",
		}, []string{"op"}),
		CacheReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeflow_cache_reloads_total",
			Help: "Total number of configuration snapshot reloads",
		}),
		CacheVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storeflow_cache_version",
			Help: "Runtime version of the loaded configuration snapshot",
		}),
	}
	reg.MustRegister(
		m.NodeEntries,
		m.InputRejections,
		m.ConfigFallbacks,
		m.ActionRuns,
		m.RuleFirings,
		m.DeliveryFailures,
		m.CacheReloads,
		m.CacheVersion,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeEntries.WithLabelValues(e.NodeCode, string(e.NodeKind)).Inc()
		},
		OnInputRejected: func(ctx context.Context, e *domain.NodeEvent) {
			m.InputRejections.WithLabelValues(e.NodeCode).Inc()
		},
		OnConfigFallback: func(ctx context.Context, e *domain.NodeEvent) {
			m.ConfigFallbacks.WithLabelValues(e.NodeCode).Inc()
		},
		OnActionRun: func(ctx context.Context, e *domain.ActionEvent) {
			m.ActionRuns.WithLabelValues(e.Action).Inc()
		},
		OnRuleFired: func(ctx context.Context, e *domain.ActionEvent) {
			m.RuleFirings.WithLabelValues(e.RuleID).Inc()
		},
		OnDeliveryFailed: func(ctx context.Context, e *domain.DeliveryEvent) {
			m.DeliveryFailures.WithLabelValues(e.Op).Inc()
		},
		OnCacheReloaded: func(ctx context.Context, e *domain.CacheEvent) {
			m.CacheReloads.Inc()
			m.CacheVersion.Set(float64(e.Version))
		},
	}
}

// Handler serves the registry in the Prometheus text format. It falls back
// to the default gatherer when the registerer was not a Gatherer.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
