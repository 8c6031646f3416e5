// metrics.go — Prometheus HTTP метрики Portfolio API.
// Регистрирует метрики: pf_http_requests_total, pf_http_request_duration_seconds.
// Бизнес-метрики (pf_ingests_total, pf_ai_tokens_total) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pf_http_requests_total",
			Help: "Общее количество HTTP-запросов к Portfolio API",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pf_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Portfolio API в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// IngestsTotal — количество принятых изображений по итоговому статусу.
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pf_ingests_total",
			Help: "Количество принятых изображений по итоговому статусу",
		},
		[]string{"status"},
	)

	// IngestWarningsTotal — предупреждения конвейера приёма по коду.
	IngestWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pf_ingest_warnings_total",
			Help: "Предупреждения конвейера приёма по коду",
		},
		[]string{"code"},
	)

	// AITokensTotal — потреблённые токены сервиса описаний.
	AITokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pf_ai_tokens_total",
			Help: "Потреблённые токены сервиса описаний",
		},
		[]string{"direction"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на плейсхолдеры для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет переменные сегменты пути на плейсхолдеры,
// чтобы кардинальность метрик не росла с количеством изображений.
// /api/v1/assets/{uuid} → /api/v1/assets/{id}
// /api/v1/files/{uuid}/large → /api/v1/files/{id}/{class}
func normalizePath(path string) string {
	switch {
	case path == "/health/live", path == "/health/ready", path == "/metrics":
		return path
	case strings.HasPrefix(path, "/api/v1/assets/"):
		suffix := path[len("/api/v1/assets/"):]
		if i := strings.IndexByte(suffix, '/'); i >= 0 {
			return "/api/v1/assets/{id}/" + suffix[i+1:]
		}
		return "/api/v1/assets/{id}"
	case strings.HasPrefix(path, "/api/v1/files/"):
		return "/api/v1/files/{id}/{class}"
	case strings.HasPrefix(path, "/api/v1/gallery/"):
		return "/api/v1/gallery/{slug}"
	}
	return path
}
