package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "liquidator"

// GraphPollerMetrics records subgraph polling activity and the freshness of
// the snapshot the engine computes against.
type GraphPollerMetrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	snapshotAge prometheus.Gauge
	accounts    prometheus.Gauge
}

// ScanMetrics records batch evaluation results.
type ScanMetrics struct {
	scans         *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	flagged       *prometheus.GaugeVec
	accountErrors prometheus.Counter
}

// ReconcileMetrics records node reconciliation runs.
type ReconcileMetrics struct {
	checks     prometheus.Counter
	mismatches prometheus.Counter
	duration   prometheus.Histogram
}

type gatewayMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	graphMetricsOnce sync.Once
	graphRegistry    *GraphPollerMetrics

	scanMetricsOnce sync.Once
	scanRegistry    *ScanMetrics

	reconcileMetricsOnce sync.Once
	reconcileRegistry    *ReconcileMetrics

	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics
)

// GraphMetrics returns the lazily-initialised subgraph poller registry.
func GraphMetrics() *GraphPollerMetrics {
	graphMetricsOnce.Do(func() {
		graphRegistry = &GraphPollerMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "requests_total",
				Help:      "Total subgraph queries segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for subgraph queries.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "snapshot_age_seconds",
				Help:      "Seconds since the active snapshot was refreshed.",
			}),
			accounts: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "accounts",
				Help:      "Accounts in the active snapshot.",
			}),
		}
		prometheus.MustRegister(
			graphRegistry.requests,
			graphRegistry.latency,
			graphRegistry.snapshotAge,
			graphRegistry.accounts,
		)
	})
	return graphRegistry
}

// ObserveQuery records one subgraph query outcome.
func (m *GraphPollerMetrics) ObserveQuery(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetSnapshot records the freshness and size of the active snapshot.
func (m *GraphPollerMetrics) SetSnapshot(age time.Duration, accounts int) {
	if m == nil {
		return
	}
	m.snapshotAge.Set(age.Seconds())
	m.accounts.Set(float64(accounts))
}

// Scans returns the lazily-initialised batch scan registry.
func Scans() *ScanMetrics {
	scanMetricsOnce.Do(func() {
		scanRegistry = &ScanMetrics{
			scans: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "runs_total",
				Help:      "Total batch scans segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "duration_seconds",
				Help:      "Latency distribution for batch scans.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			flagged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "flagged_accounts",
				Help:      "Accounts flagged by the most recent scan of each kind.",
			}, []string{"kind"}),
			accountErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "account_errors_total",
				Help:      "Accounts whose evaluation failed and was skipped.",
			}),
		}
		prometheus.MustRegister(
			scanRegistry.scans,
			scanRegistry.duration,
			scanRegistry.flagged,
			scanRegistry.accountErrors,
		)
	})
	return scanRegistry
}

// Observe records the outcome of one batch scan.
func (m *ScanMetrics) Observe(kind string, flagged, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed > 0 {
		outcome = "partial"
	}
	m.scans.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(duration.Seconds())
	m.flagged.WithLabelValues(kind).Set(float64(flagged))
	m.accountErrors.Add(float64(failed))
}

// Reconciles returns the lazily-initialised reconciliation registry.
func Reconciles() *ReconcileMetrics {
	reconcileMetricsOnce.Do(func() {
		reconcileRegistry = &ReconcileMetrics{
			checks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "accounts_total",
				Help:      "Accounts checked against the node's free collateral view.",
			}),
			mismatches: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "mismatches_total",
				Help:      "Accounts the node reports insolvent that local scans missed.",
			}),
			duration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "duration_seconds",
				Help:      "Latency distribution for full reconciliation passes.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			}),
		}
		prometheus.MustRegister(
			reconcileRegistry.checks,
			reconcileRegistry.mismatches,
			reconcileRegistry.duration,
		)
	})
	return reconcileRegistry
}

// Observe records one reconciliation pass.
func (m *ReconcileMetrics) Observe(checked, mismatched int, duration time.Duration) {
	if m == nil {
		return
	}
	m.checks.Add(float64(checked))
	m.mismatches.Add(float64(mismatched))
	m.duration.Observe(duration.Seconds())
}

// GatewayMetrics returns the lazily-initialised HTTP gateway registry.
func GatewayMetrics() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "errors_total",
				Help:      "Total gateway errors segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.errors,
			gatewayRegistry.latency,
		)
	})
	return gatewayRegistry
}

// Observe records the outcome of one gateway request. The status code should
// be the HTTP status that was ultimately written to the response writer.
func (m *gatewayMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}
