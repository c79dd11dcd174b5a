// Package metrics holds the prometheus collectors of the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billed"

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern, method and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// RemoteCalls counts calls made to the bills backend, by operation and outcome.
var RemoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "bills",
	Name:      "remote_calls_total",
	Help:      "Calls to the bills backend by operation (list, create, update) and outcome (ok, error).",
}, []string{"op", "outcome"})

var ReceiptsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "bills",
	Name:      "receipts_rejected_total",
	Help:      "Receipt files refused because of their extension.",
})

var Logins = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "auth",
	Name:      "logins_total",
	Help:      "Login attempts by outcome.",
}, []string{"outcome"})

var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "dropped_total",
	Help:      "Audit events dropped because the event queue was full.",
})

// ObserveRemote records the outcome of one backend call.
func ObserveRemote(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RemoteCalls.WithLabelValues(op, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency under the matched chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
