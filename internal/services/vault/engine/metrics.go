package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/platform/telemetry/metrics"
)

const outcomeOK = "OK"

// auditLabel names audit runs in spans and metrics. Audits are reads, so
// they have no domain.Operation.
const auditLabel = "audit"

// Metrics records engine operation outcomes.
type Metrics struct {
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	pooledBalance  prometheus.Gauge
	depositorTotal prometheus.Gauge
}

// NewMetrics builds unregistered engine collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Vault operations by operation and outcome code.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "vault",
			Name:      "operation_duration_seconds",
			Help:      "Vault operation latency including store retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		pooledBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "vault",
			Name:      "pooled_balance",
			Help:      "Pooled holding balance after the last successful operation or audit. Approximate above 2^53; vault_audit reports the exact value.",
		}),
		depositorTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "vault",
			Name:      "depositor_balance_total",
			Help:      "Sum of depositor ledger balances at the last audit. Approximate above 2^53; vault_audit reports the exact value.",
		}),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.duration, m.pooledBalance, m.depositorTotal}
}

func (m *Metrics) observe(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = string(apperrors.GetCode(err))
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// setPooled rounds balance to the nearest float64, which is exact only up
// to 2^53.
func (m *Metrics) setPooled(balance uint64) {
	if m == nil {
		return
	}
	m.pooledBalance.Set(float64(balance))
}

func (m *Metrics) setDepositorTotal(total uint64) {
	if m == nil {
		return
	}
	m.depositorTotal.Set(float64(total))
}
