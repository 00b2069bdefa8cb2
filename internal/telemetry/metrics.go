/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DeliveriesTotal counts dispatch attempts by integration type and
	// recorded status.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heimdall_deliveries_total",
		Help: "Dispatch attempts by integration type and status",
	}, []string{"type", "status"})

	// DeliveryDuration observes end-to-end handler execution time.
	DeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "heimdall_delivery_duration_seconds",
		Help:    "Handler execution duration by integration type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// APIRequestsTotal counts management API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heimdall_api_requests_total",
		Help: "HTTP requests by method, endpoint, and status",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes management API latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "heimdall_api_request_duration_seconds",
		Help:    "HTTP request duration by method, endpoint, and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "heimdall_api_active_connections",
		Help: "In-flight HTTP requests",
	})

	// DatabaseQueryDuration observes gorm operation latency per table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "heimdall_db_query_duration_seconds",
		Help:    "Database operation duration by operation and table",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts gorm operation errors per table.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heimdall_db_errors_total",
		Help: "Database operation errors by operation and table",
	}, []string{"operation", "table"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
