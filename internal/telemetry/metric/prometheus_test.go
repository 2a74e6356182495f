package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.TokenIssued()
	r.TokenIssued()
	r.Validation("valid")
	r.Validation("EXPIRED_TOKEN")
	r.Validation("EXPIRED_TOKEN")
	r.Revoked(RevokeModeUser, 3)
	r.Revoked(RevokeModeToken, 0)
	r.Pruned(5)
	r.StoreError("insert")

	if got := testutil.ToFloat64(r.issued); got != 2 {
		t.Errorf("issued = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.validations.WithLabelValues("EXPIRED_TOKEN")); got != 2 {
		t.Errorf("validations{EXPIRED_TOKEN} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.revocations.WithLabelValues(RevokeModeUser)); got != 3 {
		t.Errorf("revocations{user} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.revocations.WithLabelValues(RevokeModeToken)); got != 0 {
		t.Errorf("revocations{token} = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.pruned); got != 5 {
		t.Errorf("pruned = %v, want 5", got)
	}
	if got := testutil.ToFloat64(r.storeErrors.WithLabelValues("insert")); got != 1 {
		t.Errorf("store_errors{insert} = %v, want 1", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.TokenIssued()
	r.HTTPRequest(http.MethodPost, "/v1/tokens/validate", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"qrtoken_tokens_issued_total 1",
		`qrtoken_http_requests_total{method="POST",route="/v1/tokens/validate",status="200"} 1`,
		"qrtoken_http_request_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.TokenIssued()
	r.Validation("valid")
	r.Revoked(RevokeModeID, 1)
	r.Pruned(1)
	r.StoreError("find")
	r.HTTPRequest("GET", "/health", 200, time.Millisecond)
}
