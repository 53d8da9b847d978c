package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"unreachable", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			stats := func() *PoolStats {
				return &PoolStats{TotalConns: 2, IdleConns: 1, AcquiredConns: 1, MaxConns: 10, AcquireDuration: "1ms", Healthy: true}
			}
			if err := healthHandler(fakePinger{tt.pingErr}, stats)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var body struct {
				Status string    `json:"status"`
				Error  string    `json:"error"`
				Pool   PoolStats `json:"pool"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, body.Status)
			}
			if body.Pool.Healthy != (tt.pingErr == nil) {
				t.Errorf("expected pool healthy=%v, got %v", tt.pingErr == nil, body.Pool.Healthy)
			}
			if tt.pingErr != nil && body.Error != tt.pingErr.Error() {
				t.Errorf("expected error %q, got %q", tt.pingErr.Error(), body.Error)
			}
			if body.Pool.MaxConns != 10 {
				t.Errorf("expected max_conns 10, got %d", body.Pool.MaxConns)
			}
		})
	}
}
