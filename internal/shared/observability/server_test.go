package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticHealth struct{ status string }

func (h staticHealth) Check(context.Context) HealthStatus {
	return HealthStatus{Status: h.status, Timestamp: time.Now().UTC(), Components: map[string]string{"cache": "ok"}}
}

func TestServerHealth(t *testing.T) {
	for _, tc := range []struct {
		status string
		code   int
	}{
		{status: "up", code: http.StatusOK},
		{status: "degraded", code: http.StatusServiceUnavailable},
	} {
		srv := NewServer("127.0.0.1:0", staticHealth{status: tc.status})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != tc.code {
			t.Fatalf("status %s: expected %d, got %d", tc.status, tc.code, rec.Code)
		}
		var body HealthStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Components["cache"] != "ok" {
			t.Errorf("unexpected components %v", body.Components)
		}
	}
}

func TestServerMetrics(t *testing.T) {
	CacheEventsTotal.WithLabelValues("classpath", "hit").Inc()
	srv := NewServer("127.0.0.1:0", staticHealth{status: "up"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bazelcp_cache_events_total") {
		t.Error("expected cache metric in exposition")
	}
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "bazelcp")
	if err != nil {
		t.Fatalf("SetupTracing failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
