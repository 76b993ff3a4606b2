package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Donation transaction metrics
	donationTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donation_transactions_total",
		Help: "Total number of donation transactions",
	}, []string{
		"result", // completed, failed, canceled
		"reason", // failure reason, "none" on success
	})

	donationAmountCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donation_amount_cents_total",
		Help: "Total donated amount in minor currency units",
	}, []string{
		"currency",
	})

	donationProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "donation_processing_duration_seconds",
		Help: "Time from transaction start to terminal callback",
		// 100ms to 2min: a card-present payment includes a human tapping a card
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{
		"result",
	})

	// Catalog reconciliation metrics
	reconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_reconciliations_total",
		Help: "Total catalog reconciliation runs",
	}, []string{
		"changed", // true when a new preset list was published
	})

	// Reader connection metrics
	readerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reader_state_transitions_total",
		Help: "Reader connection state machine transitions",
	}, []string{
		"state",
	})

	// Offline queue metrics
	offlinePendingPayments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offline_pending_payments",
		Help: "Payments accepted by the terminal awaiting remote confirmation",
	})

	offlinePaymentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_payment_failures_total",
		Help: "Offline payments that failed to process or upload",
	}, []string{
		"status", // failed_to_process, failed_to_upload
	})
)

// RecordTransaction records a finished donation transaction
func RecordTransaction(result, reason, currency string, amountCents int64, duration float64) {
	donationTransactionsTotal.WithLabelValues(result, reason).Inc()
	donationProcessingDuration.WithLabelValues(result).Observe(duration)

	// Only completed transactions count toward donated revenue
	if result == "completed" {
		donationAmountCents.WithLabelValues(currency).Add(float64(amountCents))
	}
}

// RecordReconciliation records one reconciliation run
func RecordReconciliation(changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	reconciliationsTotal.WithLabelValues(label).Inc()
}

// RecordReaderState records a reader connection state transition
func RecordReaderState(state string) {
	readerStateTransitions.WithLabelValues(state).Inc()
}

// SetOfflinePending updates the offline pending-payment gauge
func SetOfflinePending(count int) {
	offlinePendingPayments.Set(float64(count))
}

// RecordOfflineFailure records a terminal offline-payment failure
func RecordOfflineFailure(status string) {
	offlinePaymentFailures.WithLabelValues(status).Inc()
}
