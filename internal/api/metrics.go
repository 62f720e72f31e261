package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skrytka",
			Name:      "http_requests_total",
			Help:      "Liczba obsłużonych żądań HTTP.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skrytka",
			Name:      "http_request_duration_seconds",
			Help:      "Czas obsługi żądania HTTP.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	filesUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skrytka",
			Name:      "files_uploaded_total",
			Help:      "Liczba przyjętych plików.",
		},
	)

	filesDownloadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skrytka",
			Name:      "files_downloaded_total",
			Help:      "Liczba pobrań plików.",
		},
	)
)

// MetricsMiddleware etykietuje żądania wzorcem trasy chi, nie surową
// ścieżką, żeby nie rozdmuchać kardynalności metryk identyfikatorami.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		routePath := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePath = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, routePath, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePath).Observe(time.Since(start).Seconds())
	})
}
