package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/open-protocol/ledger/foundation/web"
	prom "github.com/prometheus/client_golang/prometheus"
)

var (
	requests = prom.NewCounterVec(prom.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Number of HTTP requests handled, by method and status code.",
	}, []string{"method", "code"})

	requestErrors = prom.NewCounter(prom.CounterOpts{
		Name: "ledger_http_errors_total",
		Help: "Number of HTTP requests that returned an error.",
	})

	requestPanics = prom.NewCounter(prom.CounterOpts{
		Name: "ledger_http_panics_total",
		Help: "Number of HTTP requests that panicked.",
	})

	requestLatency = prom.NewHistogram(prom.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Time spent handling HTTP requests.",
		Buckets: prom.DefBuckets,
	})
)

func init() {
	prom.MustRegister(requests, requestErrors, requestPanics, requestLatency)
}

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			timer := prom.NewTimer(requestLatency)
			defer timer.ObserveDuration()

			// Call the next handler.
			err := handler(ctx, w, r)

			if err != nil {
				requestErrors.Inc()
			}

			code := http.StatusOK
			if err != nil {
				code = http.StatusInternalServerError
			}
			if v, verr := web.GetValues(ctx); verr == nil && v.StatusCode != 0 {
				code = v.StatusCode
			}
			requests.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
