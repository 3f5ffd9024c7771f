// Package middleware ships a few filters useful in virtually every
// deployment: access logging, panic recovery and request metrics. Each is
// a plain router.Filter and is registered via Registry.Use.
package middleware

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cobalt-web/cobalt/http"
	"github.com/cobalt-web/cobalt/router"
)

// AccessLog logs every request with its outcome and duration.
func AccessLog(log *zap.Logger) router.Filter {
	return func(r *http.Request, chain *router.Chain) (*http.Response, error) {
		began := time.Now()

		resp, err := chain.Proceed()

		fields := []zap.Field{
			zap.Stringer("method", r.Method),
			zap.String("path", r.Path),
			zap.Duration("duration", time.Since(began)),
		}

		switch {
		case err != nil:
			log.Info("request failed", append(fields, zap.Error(err))...)
		case resp != nil:
			log.Info("request served",
				append(fields, zap.Int("code", int(resp.Expose().Code)))...)
		default:
			log.Info("request served", fields...)
		}

		return resp, err
	}
}

// Recover converts a panic anywhere further down the chain into an error,
// letting the ordinary error classification answer the request instead of
// tearing the connection down.
func Recover() router.Filter {
	return func(r *http.Request, chain *router.Chain) (resp *http.Response, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				resp, err = nil, errors.Newf("panic: %v", rec)
			}
		}()

		return chain.Proceed()
	}
}

// Metrics counts served requests and observes their duration, labeled by
// method and status code.
func Metrics(reg prometheus.Registerer) router.Filter {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests served, by method and status code.",
	}, []string{"method", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Request duration from dispatch to response.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	reg.MustRegister(requests, duration)

	return func(r *http.Request, chain *router.Chain) (*http.Response, error) {
		began := time.Now()

		resp, err := chain.Proceed()

		code := "error"
		if err == nil && resp != nil {
			code = resp.Expose().Code.String()
		}

		requests.WithLabelValues(r.Method.String(), code).Inc()
		duration.WithLabelValues(r.Method.String()).Observe(time.Since(began).Seconds())

		return resp, err
	}
}
