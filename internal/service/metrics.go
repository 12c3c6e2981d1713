package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/punchamoorthee/payledger/internal/domain"
)

var (
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Transfers attempted, labeled by kind and outcome",
	}, []string{"kind", "outcome"})

	sweepPaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_sweep_payments_total",
		Help: "Scheduled payments handled by the due-payment sweep, labeled by outcome",
	}, []string{"outcome"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_sweep_duration_seconds",
		Help:    "Duration of due-payment sweeps",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	})
)

// outcome collapses an error into a low-cardinality metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrTransactionTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrPaymentNotDue):
		return "skipped"
	default:
		return "error"
	}
}
