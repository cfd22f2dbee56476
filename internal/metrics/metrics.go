package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headcount_source_rows_read_total",
			Help: "Total raw rows read per source table",
		},
		[]string{"table"},
	)

	RowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headcount_source_rows_skipped_total",
			Help: "Rows excluded by a table filter (format, totals, non-percentage cells)",
		},
		[]string{"table"},
	)

	CellsCoerced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headcount_coerced_cells_total",
			Help: "Non-numeric cells coerced to zero during ingestion",
		},
		[]string{"table"},
	)

	QualityFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headcount_quality_flags_total",
			Help: "Districts flagged by record validation, by flag",
		},
		[]string{"flag"},
	)

	BuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "headcount_build_duration_seconds",
			Help:    "Time to build the district records from all sources",
			Buckets: prometheus.DefBuckets,
		},
	)

	DistrictsBuilt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "headcount_districts",
			Help: "Districts in the most recent build",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "headcount_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"route", "status"},
	)
)
