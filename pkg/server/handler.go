package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/engine"
	"tollgate-hq/tollgate/pkg/server/middleware"
)

// Request headers carrying the caller's identity and payment.
const (
	AgentIDHeader       = "X-Agent-Id"
	WalletAddressHeader = "X-Wallet-Address"
	PaymentHeader       = "X-Payment"
)

// invoice is the 402 response body for unpaid priced routes.
type invoice struct {
	InvoiceID string  `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	PayTo     string  `json:"pay_to"`
}

// denialResponse is the 403 response body.
type denialResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	RuleIndex int    `json:"rule_index"`
}

// gateHandler guards one configured route with the policy engine.
//
// The flow per request: evaluate the policies; a deny is a 403. An
// allow on a priced route without an X-Payment header is a 402 with an
// invoice. Anything else is a 200. The payment amount only reaches the
// engine (and so the spending caps) when the request actually carries
// a payment; an invoice is an offer, not a spend.
func (s *Server) gateHandler(route config.RouteConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.manager.Current()
		if snapshot == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "no policies loaded",
			})
			return
		}

		paid := r.Header.Get(PaymentHeader) != ""

		req := engine.Request{
			AgentID:       r.Header.Get(AgentIDHeader),
			WalletAddress: r.Header.Get(WalletAddressHeader),
			IPAddress:     clientIP(r),
			ResourcePath:  route.Path,
			Timestamp:     time.Now(),
		}
		if paid && route.Price > 0 {
			price := route.Price
			req.Amount = &price
		}

		decision := s.engine.Evaluate(snapshot.Set, &req)

		if s.recorder != nil {
			s.recorder.Record(middleware.GetRequestID(r.Context()), &req, decision)
		}

		if !decision.Allowed() {
			s.metrics.observe(route.Path, http.StatusForbidden)
			writeJSON(w, http.StatusForbidden, denialResponse{
				Error:     "policy_denied",
				Reason:    decision.Reason,
				RuleIndex: decision.RuleIndex,
			})
			return
		}

		if route.Price > 0 && !paid {
			s.metrics.observe(route.Path, http.StatusPaymentRequired)
			writeJSON(w, http.StatusPaymentRequired, invoice{
				InvoiceID: uuid.New().String(),
				Amount:    route.Price,
				Currency:  route.Currency,
				PayTo:     route.PayTo,
			})
			return
		}

		s.metrics.observe(route.Path, http.StatusOK)
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"path":   route.Path,
		})
	})
}

// clientIP resolves the caller's IP: the first X-Forwarded-For entry
// when present, otherwise the connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
