package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// statReader pulls a single value out of a pool statistics snapshot.
type statReader func(*pgxpool.Stat) float64

type poolMetric struct {
	desc *prometheus.Desc
	kind prometheus.ValueType
	read statReader
}

// PoolStatsCollector exposes pgxpool connection statistics under the
// marketgo_db_pool_* namespace. The pool snapshot is taken once per scrape.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	metrics []poolMetric
}

// NewPoolStatsCollector builds the collector for the given pool.
func NewPoolStatsCollector(pool *pgxpool.Pool) *PoolStatsCollector {
	gauge := func(name, help string, read statReader) poolMetric {
		return poolMetric{
			desc: prometheus.NewDesc("marketgo_db_pool_"+name, help, nil, nil),
			kind: prometheus.GaugeValue,
			read: read,
		}
	}
	counter := func(name, help string, read statReader) poolMetric {
		return poolMetric{
			desc: prometheus.NewDesc("marketgo_db_pool_"+name, help, nil, nil),
			kind: prometheus.CounterValue,
			read: read,
		}
	}

	return &PoolStatsCollector{
		pool: pool,
		metrics: []poolMetric{
			gauge("acquired_connections", "Connections currently checked out of the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("idle_connections", "Connections sitting idle in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			gauge("total_connections", "All connections currently held by the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			gauge("max_connections", "Configured connection ceiling.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			gauge("constructing_connections", "Connections currently being established.",
				func(s *pgxpool.Stat) float64 { return float64(s.ConstructingConns()) }),
			counter("acquire_count_total", "Connection acquires since startup.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			counter("acquire_duration_seconds_total", "Cumulative time spent waiting for a connection.",
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			counter("canceled_acquire_count_total", "Acquires abandoned because the context was canceled.",
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			counter("empty_acquire_count_total", "Acquires that blocked waiting for a free connection.",
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			counter("new_connections_total", "Connections opened since startup.",
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }),
			counter("max_lifetime_destroy_total", "Connections closed for exceeding their lifetime.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxLifetimeDestroyCount()) }),
			counter("max_idle_destroy_total", "Connections closed for idling too long.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxIdleDestroyCount()) }),
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
	stat := c.pool.Stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.read(stat))
	}
}

// RegisterPoolMetrics registers the pool collector with the default
// Prometheus registry.
func RegisterPoolMetrics(pool *pgxpool.Pool) {
	prometheus.MustRegister(NewPoolStatsCollector(pool))
}
