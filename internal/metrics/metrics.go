package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_created_total",
		Help: "Total number of sales recorded",
	})

	SalesReversedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_reversed_total",
		Help: "Total number of sales reversed",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_failed_total",
		Help: "Total number of sale attempts rejected by the ledger",
	}, []string{"reason"})

	CartValidationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_cart_validation_failed_total",
		Help: "Total number of cart submissions blocked before reaching the ledger",
	}, []string{"reason"})

	SaleRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sale_revenue_total",
		Help: "Sum of final totals of recorded sales",
	})

	BulkRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_bulk_rows_total",
		Help: "Bulk entry rows processed by outcome",
	}, []string{"outcome"})

	LedgerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_ledger_latency_seconds",
		Help:    "Latency of sale ledger operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	StatsCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stats_cache_total",
		Help: "Dashboard cache lookups by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
