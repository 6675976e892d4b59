package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	// Instruction metrics
	Instructions     *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	MalformedRecords prometheus.Counter
	InstructionValue *prometheus.HistogramVec

	// Account metrics
	Accounts       prometheus.Gauge
	LockedAccounts prometheus.Gauge
	Transactions   prometheus.Gauge

	// Run metrics
	RunDuration prometheus.Histogram

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		// Instruction metrics
		Instructions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_instructions_total",
				Help: "Total instructions processed by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_rejections_total",
				Help: "Total rejected instructions by reason",
			},
			[]string{"reason"},
		),
		MalformedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "txledger_malformed_records_total",
			Help: "Total input records skipped as malformed",
		}),
		InstructionValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txledger_instruction_amount",
				Help:    "Amounts of accepted deposits and withdrawals",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"kind"},
		),

		// Account metrics
		Accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_accounts",
			Help: "Number of accounts in the final report",
		}),
		LockedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_locked_accounts",
			Help: "Number of locked accounts in the final report",
		}),
		Transactions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_transactions",
			Help: "Number of recorded deposits and withdrawals",
		}),

		// Run metrics
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txledger_run_duration_seconds",
			Help:    "Duration of a processing run",
			Buckets: prometheus.DefBuckets,
		}),

		// Redis metrics
		RedisOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),
	}
}

// WriteToTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
