package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStat is the part of *pgxpool.Stat exported as metrics.
type poolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	MaxConns() int32
	AcquireCount() int64
	EmptyAcquireCount() int64
	CanceledAcquireCount() int64
}

type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(poolStat) float64
}

// PoolStatsCollector exports pgxpool statistics to Prometheus.
type PoolStatsCollector struct {
	stat    func() poolStat
	metrics []poolMetric
}

// NewPoolStatsCollector creates a collector reading pool.Stat() on every scrape.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	return newPoolStatsCollector(func() poolStat { return pool.Stat() }, service)
}

func newPoolStatsCollector(stat func() poolStat, service string) *PoolStatsCollector {
	labels := prometheus.Labels{"service": service}
	gauge := func(name, help string, v func(poolStat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, nil, labels), prometheus.GaugeValue, v}
	}
	counter := func(name, help string, v func(poolStat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, nil, labels), prometheus.CounterValue, v}
	}

	return &PoolStatsCollector{
		stat: stat,
		metrics: []poolMetric{
			gauge("db_pool_acquired_connections", "Connections currently checked out.",
				func(s poolStat) float64 { return float64(s.AcquiredConns()) }),
			gauge("db_pool_idle_connections", "Idle connections in the pool.",
				func(s poolStat) float64 { return float64(s.IdleConns()) }),
			gauge("db_pool_total_connections", "Total connections in the pool.",
				func(s poolStat) float64 { return float64(s.TotalConns()) }),
			gauge("db_pool_max_connections", "Configured pool size.",
				func(s poolStat) float64 { return float64(s.MaxConns()) }),
			counter("db_pool_acquire_count_total", "Successful connection acquires.",
				func(s poolStat) float64 { return float64(s.AcquireCount()) }),
			counter("db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection.",
				func(s poolStat) float64 { return float64(s.EmptyAcquireCount()) }),
			counter("db_pool_canceled_acquire_count_total", "Acquires canceled by their context.",
				func(s poolStat) float64 { return float64(s.CanceledAcquireCount()) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(s))
	}
}

// RegisterPoolMetrics registers a pool collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolStatsCollector(pool, service))
}
