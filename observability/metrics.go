package observability

import (
	"errors"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltfinance/voltage-launchpad/core/events"
)

// LaunchMetrics tracks sale operations and the value flowing through them.
// It implements events.Emitter so committed sale events can be fed straight
// into the counters.
type LaunchMetrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	events      *prometheus.CounterVec
	amounts     *prometheus.CounterVec
	settlements prometheus.Counter
}

type httpMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	launchMetricsOnce sync.Once
	launchRegistry    *LaunchMetrics

	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics
)

// Launch returns the lazily-initialised sale metrics registry.
func Launch() *LaunchMetrics {
	launchMetricsOnce.Do(func() {
		launchRegistry = &LaunchMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "launch",
				Name:      "operations_total",
				Help:      "Sale operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "launch",
				Name:      "operation_duration_seconds",
				Help:      "Latency of sale operations including the state commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "launch",
				Name:      "events_total",
				Help:      "Committed sale events segmented by type.",
			}, []string{"type"}),
			amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "launch",
				Name:      "amount_base_units_total",
				Help:      "Base units moved by sale operations segmented by flow.",
			}, []string{"flow"}),
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "launch",
				Name:      "settlements_total",
				Help:      "Sales settled into an AMM pool.",
			}),
		}
		prometheus.MustRegister(
			launchRegistry.operations,
			launchRegistry.latency,
			launchRegistry.events,
			launchRegistry.amounts,
			launchRegistry.settlements,
		)
	})
	return launchRegistry
}

// Outcome classifies an operation error for the operations counter.
func Outcome(err error, rejections ...error) string {
	if err == nil {
		return "ok"
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return "rejected"
		}
	}
	return "error"
}

// ObserveOperation records one sale operation.
func (m *LaunchMetrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Emit implements events.Emitter.
func (m *LaunchMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.events.WithLabelValues(evt.EventType()).Inc()
	payload := events.Materialize(evt)
	if payload == nil {
		return
	}
	switch payload.Type {
	case "launch.user.participated":
		m.addAmount("deposited", payload.Attr("amount"))
	case "launch.user.withdrawn":
		m.addAmount("withdrawn", payload.Attr("amount"))
		m.addAmount("penalty", payload.Attr("penalty"))
	case "launch.pool.created":
		m.settlements.Inc()
		m.addAmount("pooled_reserve", payload.Attr("reserveAmount"))
	case "launch.incentives.withdrawn":
		m.addAmount("incentives_claimed", payload.Attr("amount"))
	case "launch.user.liquidity_withdrawn", "launch.issuer.liquidity_withdrawn":
		m.addAmount("shares_claimed", payload.Attr("shares"))
	case "launch.emergency.withdrawn":
		m.addAmount("emergency", payload.Attr("amount"))
	}
}

func (m *LaunchMetrics) addAmount(flow, raw string) {
	value, ok := new(big.Float).SetString(raw)
	if !ok || value.Sign() <= 0 {
		return
	}
	f, _ := value.Float64()
	m.amounts.WithLabelValues(flow).Add(f)
}

// HTTP returns the lazily-initialised HTTP metrics registry.
func HTTP() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests segmented by route, method and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for HTTP handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Requests rejected by the rate limiter.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.latency, httpRegistry.throttles)
	})
	return httpRegistry
}

// Observe records the outcome of an HTTP request.
func (m *httpMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for route.
func (m *httpMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.throttles.WithLabelValues(route).Inc()
}
