package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/frankbot/frank/internal/apperrors"
	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/invitations"
	"github.com/frankbot/frank/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"
)

// LoggingMiddleware logs HTTP requests with structured fields and records
// their latency.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		metrics.RequestLatency.
			WithLabelValues(r.Method, routePattern(r), strconv.Itoa(wrapped.statusCode)).
			Observe(duration.Seconds())

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", duration).
			Str("request_id", apperrors.GetRequestID(r.Context())).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// routePattern keeps metric label cardinality bounded by using the matched
// chi pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// RecoveryMiddleware recovers from panics, records an error report and
// returns a 500 error.
func RecoveryMiddleware(recorder invitations.ErrorRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					log.Error().
						Interface("error", err).
						Str("request_id", apperrors.GetRequestID(r.Context())).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					if recorder != nil {
						report := errorlog.Report{
							Message: fmt.Sprintf("panic: %v", err),
							Route:   r.Method + " " + routePattern(r),
							Stack:   errorlog.Stacktrace(),
						}
						if recErr := recorder.Record(context.WithoutCancel(r.Context()), report); recErr != nil {
							log.Error().Err(recErr).Msg("Failed to record panic")
						}
					}

					apperrors.WriteInternalError(w, r, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// NoCacheMiddleware adds headers to prevent caching.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// IntakeRateLimitMiddleware limits intake requests per IP address.
func IntakeRateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			apperrors.WriteError(w, r, http.StatusTooManyRequests, "rate_limited", "Too many messages. Try again later.")
		}),
	)
}
