package commerce

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/config"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.Config{
		CommerceBaseURL: baseURL,
		CommerceAPIKey:  "key_test",
		CommerceTimeout: 2 * time.Second,
	}, zap.NewNop())
}

func TestFetchCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges/ch_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get(apiKeyHeader) != "key_test" {
			t.Fatalf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"ch_1","status":"CONFIRMED"}}`))
	}))
	defer srv.Close()

	raw, err := newTestClient(srv.URL).FetchCharge(context.Background(), "ch_1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	facts, err := NormalizeCharge(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.ChargeID != "ch_1" || facts.Status != billingdomain.StatusConfirmed {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestFetchChargeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCharge(context.Background(), "ch_1")
	if !errors.Is(err, billingdomain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestFetchChargeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchCharge(context.Background(), "ch_1")
	if !errors.Is(err, billingdomain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestFetchChargeMissingID(t *testing.T) {
	_, err := newTestClient("http://localhost").FetchCharge(context.Background(), "  ")
	if !errors.Is(err, billingdomain.ErrMissingChargeID) {
		t.Fatalf("expected missing charge id, got %v", err)
	}
}
