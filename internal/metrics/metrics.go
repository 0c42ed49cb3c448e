// Package metrics registers the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ReportMutations counts create/update/delete attempts by outcome
	// (ok, validation, locked, not_found, conflict, store, ...).
	ReportMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_mutations_total",
		Help: "Report mutations by operation and outcome",
	}, []string{"op", "outcome"})

	HistoryEntriesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "report_history_entries_appended_total",
		Help: "History entries appended by report updates",
	})
)
