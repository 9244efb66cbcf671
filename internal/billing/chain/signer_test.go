package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/config"
	"go.uber.org/zap"
)

func newTestSigner(baseURL string, timeout time.Duration) Client {
	return NewSignerClient(config.Config{
		SignerURL:    baseURL,
		SignerAPIKey: "signer_test",
		ChainTimeout: timeout,
	}, zap.NewNop())
}

func TestPaySubscription(t *testing.T) {
	paidUntil := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscriptions/pay" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer signer_test" {
			t.Fatalf("missing bearer token")
		}
		var req struct {
			TeamID  int64 `json:"teamId"`
			PlanKey int   `json:"planKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.TeamID != 42 || req.PlanKey != 2 {
			t.Fatalf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"txHash":    "0xabc",
			"paidUntil": paidUntil,
		})
	}))
	defer srv.Close()

	receipt, err := newTestSigner(srv.URL, 2*time.Second).PaySubscription(context.Background(), snowflake.ID(42), billingdomain.PlanKeyPlus)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if receipt.TxHash != "0xabc" {
		t.Fatalf("unexpected tx hash %q", receipt.TxHash)
	}
	if !receipt.PaidUntil.Equal(paidUntil) {
		t.Fatalf("paid until %v, want %v", receipt.PaidUntil, paidUntil)
	}
}

func TestPaySubscriptionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient allowance"})
	}))
	defer srv.Close()

	_, err := newTestSigner(srv.URL, 2*time.Second).PaySubscription(context.Background(), snowflake.ID(42), billingdomain.PlanKeyBase)
	if !errors.Is(err, billingdomain.ErrPaymentRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient allowance") {
		t.Fatalf("expected signer reason in error, got %v", err)
	}
}

func TestPaySubscriptionTimeoutIsUnresolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects the client disconnect and
		// cancels the request context; otherwise srv.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := newTestSigner(srv.URL, 50*time.Millisecond).PaySubscription(context.Background(), snowflake.ID(42), billingdomain.PlanKeyBase)
	if !errors.Is(err, billingdomain.ErrPaymentUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
}

func TestPaySubscriptionIncompleteReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"txHash": "0xabc"})
	}))
	defer srv.Close()

	_, err := newTestSigner(srv.URL, 2*time.Second).PaySubscription(context.Background(), snowflake.ID(42), billingdomain.PlanKeyBase)
	if !errors.Is(err, billingdomain.ErrPaymentRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestPaySubscriptionNotConfigured(t *testing.T) {
	_, err := newTestSigner("", time.Second).PaySubscription(context.Background(), snowflake.ID(42), billingdomain.PlanKeyBase)
	if !errors.Is(err, billingdomain.ErrSignerNotConfigured) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
