// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
)

// RequestID assigns a correlation ID to every request, honoring a
// client-supplied X-Request-ID, and binds it into the logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// Metrics records per-endpoint request counts, latency and the
// in-flight gauge. The chi route pattern keys the metrics so user IDs
// never explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, pattern, ww.Status(), time.Since(started))
	})
}

// AccessLog emits one structured line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

// rateLimitExceeded is the httprate handler that accounts rejections.
func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
	respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
}
