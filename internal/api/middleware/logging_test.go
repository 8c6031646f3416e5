package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestRequestLoggerTenantLabel проверяет, что запросы с контекстом
// маршрутизации логируются с меткой тенанта, а остальные — без неё.
func TestRequestLoggerTenantLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gallery", nil)
	req.Header.Set("X-Portfolio-Tenant", "anna")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"tenant_label":"anna"`) {
		t.Errorf("метка тенанта отсутствует в логе: %s", buf.String())
	}

	buf.Reset()
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), "tenant_label") {
		t.Errorf("метка тенанта не должна логироваться без контекста маршрутизации: %s", buf.String())
	}
}

// TestRequestLoggerStatusLevel проверяет уровень логирования по статусу.
func TestRequestLoggerStatusLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("статус 500 должен логироваться уровнем ERROR: %s", buf.String())
	}
}
