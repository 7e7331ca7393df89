package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the allocation engine and the authentication throttle.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	cancelsTotal    *prometheus.CounterVec
	rateLimitTotal  *prometheus.CounterVec
	throttleDegrade prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	bookingsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_total",
		Help: "Booking attempts by outcome",
	}, []string{"result"})

	cancelsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_cancellations_total",
		Help: "Cancellation attempts by outcome",
	}, []string{"result"})

	rateLimitTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_decisions_total",
		Help: "Throttle decisions by action and outcome",
	}, []string{"action", "allowed"})

	throttleDegrade := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_degraded_total",
		Help: "Throttle checks that failed open on a storage fault",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, bookingsTotal, cancelsTotal, rateLimitTotal, throttleDegrade, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		bookingsTotal:   bookingsTotal,
		cancelsTotal:    cancelsTotal,
		rateLimitTotal:  rateLimitTotal,
		throttleDegrade: throttleDegrade,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBooking counts a booking attempt outcome.
func (m *MetricsService) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

// ObserveCancellation counts a cancellation attempt outcome.
func (m *MetricsService) ObserveCancellation(result string) {
	if m == nil {
		return
	}
	m.cancelsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimit counts a throttle decision.
func (m *MetricsService) ObserveRateLimit(action string, allowed bool) {
	if m == nil {
		return
	}
	m.rateLimitTotal.WithLabelValues(action, fmt.Sprintf("%t", allowed)).Inc()
}

// ObserveThrottleDegraded counts a fail-open decision.
func (m *MetricsService) ObserveThrottleDegraded() {
	if m == nil {
		return
	}
	m.throttleDegrade.Inc()
}
