package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
	"gorm.io/gorm"
)

// SyncChargeRequest is the client-initiated reconciliation poll. The team is
// always the authenticated caller's own; a client can never name another team.
type SyncChargeRequest struct {
	PlanKey  PlanKey
	Method   PaymentMethod
	ChargeID string
}

// OnChainResult reports a settled on-chain subscription purchase.
type OnChainResult struct {
	TeamID    snowflake.ID `json:"teamId"`
	TxHash    string       `json:"txHash"`
	PaidUntil time.Time    `json:"paidUntil"`
}

// Service is the subscription reconciliation engine. Three independent,
// mutually-untrusted sources funnel into one authoritative plan record per
// team. Entry points are individually idempotent-safe but not mutually
// exclusive; the store's last writer wins.
type Service interface {
	// HandleWebhook processes one processor webhook delivery. A nil return
	// means "acknowledged", which includes events the engine intentionally
	// ignores. Only signature and payload failures are client errors.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// SyncCharge reconciles the caller's team against a processor charge.
	SyncCharge(ctx context.Context, team teamdomain.Team, req SyncChargeRequest) error

	// PayOnChain settles a subscription on-chain and applies the
	// chain-dictated expiry. No write happens when the chain call fails.
	PayOnChain(ctx context.Context, team teamdomain.Team, planKey PlanKey) (OnChainResult, error)
}

// ChargeFetcher is the processor REST collaborator ("fetch charge by id").
type ChargeFetcher interface {
	FetchCharge(ctx context.Context, chargeID string) (json.RawMessage, error)
}

// Repository persists the reconciliation audit trail.
type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, record *EventRecord) error
}

var (
	// Configuration: fatal server-side misconfiguration.
	ErrSecretNotConfigured = errors.New("webhook_secret_not_configured")
	ErrSignerNotConfigured = errors.New("signer_not_configured")

	// Authentication: reject before any parsing.
	ErrInvalidSignature = errors.New("invalid_signature")

	// Validation: no store write, client-facing message.
	ErrInvalidPayload    = errors.New("invalid_payload")
	ErrInvalidPlanKey    = errors.New("invalid_plan_key")
	ErrInvalidMethod     = errors.New("invalid_payment_method")
	ErrMissingChargeID   = errors.New("missing_charge_id")
	ErrChargeNotEligible = errors.New("charge_not_eligible")

	// Upstream: surfaced to the caller, no write, no automatic retry.
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
	ErrPaymentRejected     = errors.New("payment_rejected")
	// ErrPaymentUnresolved means the chain call timed out before
	// confirmation. The transaction may still confirm; the caller must
	// re-check instead of assuming failure.
	ErrPaymentUnresolved = errors.New("payment_unresolved")
)
