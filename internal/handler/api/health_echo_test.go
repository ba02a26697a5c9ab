package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func readyz(h *ReadinessHandler) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReadyWithoutBackends(t *testing.T) {
	rec := readyz(NewReadinessHandler(nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
}

func TestReadyReportsFailedProbe(t *testing.T) {
	ok := Probe{Name: "redis", Check: func(context.Context) error { return nil }}
	down := Probe{Name: "clickhouse", Check: func(context.Context) error { return errors.New("connection refused") }}
	rec := readyz(NewReadinessHandler(nil, ok, down))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"field":"clickhouse"`) || strings.Contains(body, `"field":"redis"`) {
		t.Fatalf("unexpected body %s", body)
	}
}
