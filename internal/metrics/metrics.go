package metrics

import (
	"inventoryflow/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inventoryflow"

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// SweepMetrics holds the collectors for the low-stock sweep.
type SweepMetrics struct {
	Sweeps        *prometheus.CounterVec
	SweepDuration prometheus.Histogram
	ItemsScanned  prometheus.Counter
	Emails        *prometheus.CounterVec
	Reconciled    *prometheus.CounterVec
}

func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	factory := promauto.With(reg)
	return &SweepMetrics{
		Sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_sweeps_total",
			Help:      "Low stock sweeps by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "low_stock_sweep_duration_seconds",
			Help:      "Wall time of completed low stock sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		ItemsScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_items_scanned_total",
			Help:      "Products found below the low stock threshold.",
		}),
		Emails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_emails_total",
			Help:      "Low stock alert emails by delivery result.",
		}, []string{"result"}),
		Reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_reconciled_total",
			Help:      "Products marked out-of-stock by result.",
		}, []string{"result"}),
	}
}

// Observe records a finished sweep. A nil result means the sweep aborted.
func (m *SweepMetrics) Observe(trigger models.SweepTrigger, result *models.SweepResult) {
	if result == nil {
		m.Sweeps.WithLabelValues(string(trigger), OutcomeFailed).Inc()
		return
	}

	outcome := OutcomeSuccess
	if !result.OK() {
		outcome = OutcomePartial
	}
	m.Sweeps.WithLabelValues(string(trigger), outcome).Inc()
	m.SweepDuration.Observe(result.Duration().Seconds())
	m.ItemsScanned.Add(float64(result.Scanned))
	m.Emails.WithLabelValues("sent").Add(float64(result.EmailsSent))
	m.Emails.WithLabelValues("failed").Add(float64(result.EmailsFailed))
	m.Reconciled.WithLabelValues("ok").Add(float64(result.Reconciled))
	m.Reconciled.WithLabelValues("failed").Add(float64(result.ReconcileFailed))
}

// Skipped records a trigger rejected because another sweep was running.
func (m *SweepMetrics) Skipped(trigger models.SweepTrigger) {
	m.Sweeps.WithLabelValues(string(trigger), OutcomeSkipped).Inc()
}
