package rbackit

import (
	"sync"
	"time"
)

// TransactionMetrics provides transaction performance and failure statistics.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	FailedLinks            int64         `json:"failed_links"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	MinDuration            time.Duration `json:"min_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

// transactionMonitor accumulates outcomes and durations of adapter transactions.
// All fields are guarded by mu.
type transactionMonitor struct {
	mu sync.Mutex

	total        int64
	succeeded    int64
	failed       int64
	linkFailures int64 // permission links that failed after a role save committed
	elapsed      time.Duration
	longest      time.Duration
	shortest     time.Duration // zero until the first transaction
	lastReset    time.Time
}

func newTransactionMonitor() *transactionMonitor {
	return &transactionMonitor{lastReset: time.Now()}
}

// recordTransaction records one finished transaction.
func (tm *transactionMonitor) recordTransaction(duration time.Duration, success bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.total++
	if success {
		tm.succeeded++
	} else {
		tm.failed++
	}
	tm.elapsed += duration
	if duration > tm.longest {
		tm.longest = duration
	}
	if tm.total == 1 || duration < tm.shortest {
		tm.shortest = duration
	}
}

// recordLinkFailure counts a role to permission link that failed after its role committed.
func (tm *transactionMonitor) recordLinkFailure() {
	tm.mu.Lock()
	tm.linkFailures++
	tm.mu.Unlock()
}

func (tm *transactionMonitor) getMetrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	m := TransactionMetrics{
		TotalTransactions:      tm.total,
		SuccessfulTransactions: tm.succeeded,
		FailedTransactions:     tm.failed,
		FailedLinks:            tm.linkFailures,
		MaxDuration:            tm.longest,
		MinDuration:            tm.shortest,
		LastReset:              tm.lastReset,
	}
	if tm.total > 0 {
		m.AverageDuration = tm.elapsed / time.Duration(tm.total)
	}
	return m
}

func (tm *transactionMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.total, tm.succeeded, tm.failed, tm.linkFailures = 0, 0, 0, 0
	tm.elapsed, tm.longest, tm.shortest = 0, 0, 0
	tm.lastReset = time.Now()
}
