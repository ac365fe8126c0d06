package rbackit

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// inTx runs fn in a transaction: begin, fn, commit, or rollback when fn or the
// commit fails. Duration and outcome are recorded on the transaction monitor.
func (a *SQLAdapter) inTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	start := time.Now()
	err := a.db.RunInTx(ctx, nil, fn)
	a.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// GetTransactionMetrics returns the current transaction performance metrics.
func (a *SQLAdapter) GetTransactionMetrics() TransactionMetrics {
	return a.txMonitor.getMetrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (a *SQLAdapter) ResetTransactionMetrics() {
	a.txMonitor.reset()
}

// IsTransactionHealthy checks if transaction performance is within acceptable thresholds.
func (a *SQLAdapter) IsTransactionHealthy() bool {
	metrics := a.txMonitor.getMetrics()

	// If we have very few transactions, consider it healthy
	if metrics.TotalTransactions < 10 {
		return true
	}

	// Check failure rate (should be less than 5%)
	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	// Check average duration (should be less than 1 second)
	if metrics.AverageDuration > time.Second {
		return false
	}

	return true
}
