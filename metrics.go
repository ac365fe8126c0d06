package rbackit

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "rbackit"

var (
	txTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "storage", "transactions_total"),
		"Storage transactions by outcome.",
		[]string{"outcome"}, nil)
	txFailedLinksDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "storage", "failed_links_total"),
		"Role permission links that failed after the role was saved.",
		nil, nil)
	txAvgDurationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "storage", "transaction_avg_duration_seconds"),
		"Average storage transaction duration since the last reset.",
		nil, nil)
	txMaxDurationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "storage", "transaction_max_duration_seconds"),
		"Longest storage transaction since the last reset.",
		nil, nil)
	poolConnectionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "pool", "connections"),
		"Database pool connections by state.",
		[]string{"state"}, nil)
	cacheRequestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "requests_total"),
		"Permission cache lookups by result.",
		[]string{"result"}, nil)
	cacheEvictionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "evictions_total"),
		"Permission cache entries dropped.",
		nil, nil)
	cacheSizeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "entries"),
		"Permission cache entries currently held.",
		nil, nil)
)

// Collector exports storage, pool and cache statistics to Prometheus.
// Values are read when scraped; any source may be nil.
//
//	reg.MustRegister(rbackit.NewCollector(adapter, adapter, cached))
type Collector struct {
	tx     TransactionMonitor
	health HealthMonitor
	cache  CacheStats
}

// NewCollector creates a Collector over the given sources.
func NewCollector(tx TransactionMonitor, health HealthMonitor, cache CacheStats) *Collector {
	return &Collector{tx: tx, health: health, cache: cache}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.tx != nil {
		ch <- txTotalDesc
		ch <- txFailedLinksDesc
		ch <- txAvgDurationDesc
		ch <- txMaxDurationDesc
	}
	if c.health != nil {
		ch <- poolConnectionsDesc
	}
	if c.cache != nil {
		ch <- cacheRequestsDesc
		ch <- cacheEvictionsDesc
		ch <- cacheSizeDesc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.tx != nil {
		m := c.tx.GetTransactionMetrics()
		ch <- prometheus.MustNewConstMetric(txTotalDesc, prometheus.CounterValue, float64(m.SuccessfulTransactions), "success")
		ch <- prometheus.MustNewConstMetric(txTotalDesc, prometheus.CounterValue, float64(m.FailedTransactions), "failure")
		ch <- prometheus.MustNewConstMetric(txFailedLinksDesc, prometheus.CounterValue, float64(m.FailedLinks))
		ch <- prometheus.MustNewConstMetric(txAvgDurationDesc, prometheus.GaugeValue, m.AverageDuration.Seconds())
		ch <- prometheus.MustNewConstMetric(txMaxDurationDesc, prometheus.GaugeValue, m.MaxDuration.Seconds())
	}
	if c.health != nil {
		stats := c.health.GetPoolStats()
		ch <- prometheus.MustNewConstMetric(poolConnectionsDesc, prometheus.GaugeValue, float64(stats.InUse), "in_use")
		ch <- prometheus.MustNewConstMetric(poolConnectionsDesc, prometheus.GaugeValue, float64(stats.Idle), "idle")
		ch <- prometheus.MustNewConstMetric(poolConnectionsDesc, prometheus.GaugeValue, float64(stats.MaxOpenConnections), "max_open")
	}
	if c.cache != nil {
		s := c.cache.Stats()
		ch <- prometheus.MustNewConstMetric(cacheRequestsDesc, prometheus.CounterValue, float64(s.Hits), "hit")
		ch <- prometheus.MustNewConstMetric(cacheRequestsDesc, prometheus.CounterValue, float64(s.Misses), "miss")
		ch <- prometheus.MustNewConstMetric(cacheEvictionsDesc, prometheus.CounterValue, float64(s.Evictions))
		ch <- prometheus.MustNewConstMetric(cacheSizeDesc, prometheus.GaugeValue, float64(s.Size))
	}
}

var _ prometheus.Collector = (*Collector)(nil)
