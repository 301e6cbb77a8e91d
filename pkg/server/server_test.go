package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"tollgate-hq/tollgate/pkg/audit/recorder"
	"tollgate-hq/tollgate/pkg/audit/storage"
	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/engine"
	"tollgate-hq/tollgate/pkg/policy/manager"
	"tollgate-hq/tollgate/pkg/state"
)

const gatePolicies = `
policies:
  - type: denylist
    field: agent_id
    values: ["banned-*"]
  - type: rate_limit
    max_requests: 100
    window_seconds: 60
    scope: agent_id
  - type: spending_cap
    max_amount: 1.0
    currency: USD
    window_seconds: 3600
    scope: agent_id
`

type testServer struct {
	*Server
	auditStore *storage.MemoryStorage
	auditRec   *recorder.Recorder
}

func newTestServer(t *testing.T, policies string) *testServer {
	t.Helper()

	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policies.yaml")
	if err := os.WriteFile(policyPath, []byte(policies), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mgr := manager.New(nil, policyPath, logger)
	if err := mgr.Load(); err != nil {
		t.Fatalf("load policies: %v", err)
	}

	store := state.NewMemoryStore()
	auditStore := storage.NewMemoryStorage()
	rec := recorder.New(auditStore, &recorder.Config{Enabled: true, BufferSize: 64, WriteTimeout: time.Second})

	cfg := config.Default()
	cfg.Routes = []config.RouteConfig{
		{Path: "/api/data", Price: 0.25, Currency: "USD", PayTo: "0xf00"},
		{Path: "/api/free"},
	}

	srv, err := New(Options{
		Config:   cfg,
		Manager:  mgr,
		Engine:   engine.New(store),
		Store:    store,
		Recorder: rec,
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Cleanup(func() {
		_ = rec.Close()
		_ = auditStore.Close()
	})
	return &testServer{Server: srv, auditStore: auditStore, auditRec: rec}
}

func doRequest(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:43210"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestFreeRouteAllowed(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	rec := doRequest(t, ts.Handler(), "/api/free", map[string]string{AgentIDHeader: "agent-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestPricedRouteWithoutPaymentGets402(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	rec := doRequest(t, ts.Handler(), "/api/data", map[string]string{AgentIDHeader: "agent-1"})

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402; body %s", rec.Code, rec.Body)
	}
	var inv invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(inv.InvoiceID); err != nil {
		t.Errorf("invoice_id %q is not a UUID", inv.InvoiceID)
	}
	if inv.Amount != 0.25 || inv.Currency != "USD" || inv.PayTo != "0xf00" {
		t.Errorf("invoice = %+v", inv)
	}
}

func TestPricedRouteWithPaymentGets200(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	rec := doRequest(t, ts.Handler(), "/api/data", map[string]string{
		AgentIDHeader: "agent-1",
		PaymentHeader: "payment-proof",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
}

func TestDeniedAgentGets403(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	rec := doRequest(t, ts.Handler(), "/api/free", map[string]string{AgentIDHeader: "banned-9"})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body %s", rec.Code, rec.Body)
	}
	var denial denialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &denial); err != nil {
		t.Fatal(err)
	}
	if denial.Error != "policy_denied" {
		t.Errorf("error = %q", denial.Error)
	}
	if denial.RuleIndex != 0 {
		t.Errorf("rule_index = %d, want 0", denial.RuleIndex)
	}
	if !strings.Contains(denial.Reason, "denylisted") {
		t.Errorf("reason = %q", denial.Reason)
	}
}

func TestSpendingCapAcrossPayments(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	handler := ts.Handler()
	headers := map[string]string{
		AgentIDHeader: "agent-2",
		PaymentHeader: "payment-proof",
	}

	// Cap is 1.0, price 0.25: four paid calls pass, the fifth trips.
	for i := 0; i < 4; i++ {
		if rec := doRequest(t, handler, "/api/data", headers); rec.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d; body %s", i, rec.Code, rec.Body)
		}
	}
	rec := doRequest(t, handler, "/api/data", headers)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("fifth call status = %d, want 403; body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "spending cap") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestUnpaidRequestsDoNotConsumeSpendingCap(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	handler := ts.Handler()

	// 402 invoices must not count against the cap.
	for i := 0; i < 10; i++ {
		rec := doRequest(t, handler, "/api/data", map[string]string{AgentIDHeader: "agent-3"})
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("call %d: status = %d", i, rec.Code)
		}
	}
	rec := doRequest(t, handler, "/api/data", map[string]string{
		AgentIDHeader: "agent-3",
		PaymentHeader: "payment-proof",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("paid call after invoices: status = %d; body %s", rec.Code, rec.Body)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	rec := doRequest(t, ts.Handler(), "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
	if body["policies"] != float64(3) {
		t.Errorf("policies = %v", body["policies"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	handler := ts.Handler()

	doRequest(t, handler, "/api/free", map[string]string{AgentIDHeader: "agent-1"})
	rec := doRequest(t, handler, "/metrics", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tollgate_http_requests_total") {
		t.Error("metrics output missing tollgate_http_requests_total")
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	rec := doRequest(t, ts.Handler(), "/api/free", map[string]string{AgentIDHeader: "agent-1"})

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("responses should carry X-Request-ID")
	}
}

func TestAuditTrailRecordsDecisions(t *testing.T) {
	ts := newTestServer(t, gatePolicies)
	handler := ts.Handler()

	doRequest(t, handler, "/api/free", map[string]string{AgentIDHeader: "agent-1"})
	doRequest(t, handler, "/api/free", map[string]string{AgentIDHeader: "banned-1"})

	// Recorder writes async; Close drains it.
	if err := ts.auditRec.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := ts.auditStore.Query(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("audit records = %d, want 2", len(records))
	}

	outcomes := map[string]int{}
	for _, r := range records {
		outcomes[r.Outcome]++
		if r.RequestID == "" {
			t.Error("audit record missing request ID")
		}
	}
	if outcomes["allow"] != 1 || outcomes["deny"] != 1 {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:43210"
	if ip := clientIP(req); ip != "192.0.2.10" {
		t.Errorf("clientIP = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 192.0.2.10")
	if ip := clientIP(req); ip != "203.0.113.5" {
		t.Errorf("clientIP with XFF = %q", ip)
	}
}
