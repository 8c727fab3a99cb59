package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func gatherText(t *testing.T, p *Provider) string {
	t.Helper()
	e := echo.New()
	e.GET("/metrics", p.Handler())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddleware_CountsRequests(t *testing.T) {
	p := NewProvider()

	e := echo.New()
	e.Use(p.Middleware())
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
	}

	out := gatherText(t, p)
	if !strings.Contains(out, `http_requests_total{method="GET",route="/ping",status="200"} 3`) {
		t.Errorf("missing request counter in output:\n%s", out)
	}
	if !strings.Contains(out, "http_request_duration_seconds_bucket") {
		t.Error("missing duration histogram")
	}
}

func TestBusinessCounters(t *testing.T) {
	p := NewProvider()

	p.PaymentRecorded("CASH")
	p.PaymentRecorded("CASH")
	p.PaymentRecorded("UPI")
	p.RefundSynthesized("amount_change")
	p.SequenceConflict("billing")

	out := gatherText(t, p)
	for _, want := range []string{
		`billing_payments_recorded_total{method="CASH"} 2`,
		`billing_payments_recorded_total{method="UPI"} 1`,
		`billing_refunds_synthesized_total{reason="amount_change"} 1`,
		`sequence_lock_conflicts_total{entity="billing"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}
