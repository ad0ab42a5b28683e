package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatementsTotal counts executed statements by kind and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memdb_statements_total",
			Help: "Total number of executed SQL statements",
		},
		[]string{"kind", "status"},
	)
	// StatementDuration is the execution latency of statements.
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memdb_statement_duration_seconds",
			Help:    "SQL statement execution latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"kind"},
	)
	// RowsReturned counts rows produced by queries.
	RowsReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memdb_rows_returned_total",
			Help: "Total number of rows returned by queries",
		},
	)
	// ParseCacheLookups counts parse cache lookups by result (hit or miss).
	ParseCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memdb_parse_cache_lookups_total",
			Help: "Parse cache lookups by result",
		},
		[]string{"result"},
	)
	// ParseErrors counts statements rejected by the parser.
	ParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memdb_parse_errors_total",
			Help: "Total number of statements that failed to parse",
		},
	)
)
