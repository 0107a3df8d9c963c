package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors the server exports.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthFailuresTotal *prometheus.CounterVec

	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	OrdersCreatedTotal    prometheus.Counter
	PaymentsRecordedTotal prometheus.Counter
	PaymentDriftDetected  prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookcourier_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookcourier_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookcourier_auth_failures_total",
				Help: "Requests rejected by the authorization gate",
			},
			[]string{"reason"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookcourier_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookcourier_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OrdersCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookcourier_orders_created_total",
				Help: "Orders successfully created",
			},
		),
		PaymentsRecordedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookcourier_payments_recorded_total",
				Help: "Payments successfully recorded",
			},
		),
		PaymentDriftDetected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookcourier_payment_drift_detected",
				Help: "Payments whose order or book state was never updated",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.OrdersCreatedTotal,
		m.PaymentsRecordedTotal,
		m.PaymentDriftDetected,
	)

	return m
}

// Handler returns the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveStorage records one storage operation.
func (m *Metrics) ObserveStorage(operation string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
