// Package metrics exposes Prometheus collectors for the console and the
// stand-in crawl service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the gateway and poll collectors.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	gatewayCallsTotal          *prometheus.CounterVec
	gatewayCallDurationSeconds *prometheus.HistogramVec
	rosterPollsTotal           *prometheus.CounterVec
	rosterSize                 prometheus.Gauge
	staleResponsesTotal        *prometheus.CounterVec
	commandsTotal              *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		gatewayCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_gateway_calls_total",
				Help: "Total number of remote crawl service calls, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		gatewayCallDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_gateway_call_duration_seconds",
				Help:    "Histogram of remote crawl service call latencies, labeled by operation.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"operation"},
		)

		rosterPollsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_roster_polls_total",
				Help: "Total number of roster polls applied, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		rosterSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "console_roster_size",
				Help: "Number of crawls in the most recently applied roster snapshot.",
			},
		)

		staleResponsesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_stale_responses_total",
				Help: "Responses discarded because a newer request superseded them, labeled by slot.",
			},
			[]string{"slot"},
		)

		commandsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_commands_total",
				Help: "Total number of dispatched commands, labeled by action and outcome.",
			},
			[]string{"action", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// ObserveGatewayCall records one remote service call.
func ObserveGatewayCall(operation string, err error, duration time.Duration) {
	Init()
	gatewayCallsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	gatewayCallDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRosterPoll records an applied roster poll and the resulting size.
func ObserveRosterPoll(err error, size int) {
	Init()
	rosterPollsTotal.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		rosterSize.Set(float64(size))
	}
}

// ObserveStaleResponse counts a discarded response for slot.
func ObserveStaleResponse(slot string) {
	Init()
	staleResponsesTotal.WithLabelValues(slot).Inc()
}

// ObserveCommand counts a completed command.
func ObserveCommand(action string, err error) {
	Init()
	commandsTotal.WithLabelValues(action, Outcome(err)).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
