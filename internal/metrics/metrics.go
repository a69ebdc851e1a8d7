// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"method", "route"},
	)

	inFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// RemindersScheduled counts armed alarms by kind (exact or coarse).
	RemindersScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_scheduled_total",
			Help: "Reminder alarms armed, by kind",
		},
		[]string{"kind"},
	)

	RemindersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminders_cancelled_total",
		Help: "Reminder cancellations requested",
	})

	RemindersFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Reminder alarms delivered to the notifier",
	})

	RemindersPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reminders_pending",
		Help: "Alarms currently armed",
	})

	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_reconcile_runs_total",
			Help: "Reconciliation sweeps, by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware records request count, latency and in-flight requests.
func Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		inFlightRequests.Inc()
		defer inFlightRequests.Dec()

		start := time.Now()
		next(ctx)

		method := string(ctx.Method())
		route := normalizeRoute(string(ctx.Path()))
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}

// normalizeRoute replaces numeric path segments with {id} to bound label cardinality.
func normalizeRoute(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
