package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ChargeStatus is the processor charge state after normalization.
type ChargeStatus string

const (
	StatusConfirmed ChargeStatus = "CONFIRMED"
	StatusOther     ChargeStatus = "OTHER"
)

// AcceptedCurrency is the only settlement currency that credits a plan.
const AcceptedCurrency = "USDC"

// Reconciliation sources.
const (
	SourceWebhook    = "webhook"
	SourceClientSync = "client-sync"
	SourceOnChain    = "on-chain"
)

// ChargeFacts is the canonical view of one payment assertion, extracted
// from a webhook delivery or a REST charge fetch. It is transient and never
// persisted as-is.
type ChargeFacts struct {
	ChargeID string
	Status   ChargeStatus
	Currency string
	PlanKey  PlanKey
	// TeamID is zero when the charge metadata carries no usable team id.
	TeamID snowflake.ID
}

// Confirmed reports whether money actually moved in the accepted currency.
func (f ChargeFacts) Confirmed() bool {
	return f.Status == StatusConfirmed && f.Currency == AcceptedCurrency
}

// Eligible reports whether the facts justify a subscription write, aside
// from team resolution.
func (f ChargeFacts) Eligible() bool {
	return f.Confirmed() && f.PlanKey.Valid()
}

// EventRecord is the audit row written after each applied reconciliation.
// It is never consulted for idempotency; repeated deliveries simply apply
// the same values again.
type EventRecord struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	DeliveryID string         `gorm:"type:text;not null"`
	Source     string         `gorm:"type:text;not null"`
	ChargeID   string         `gorm:"type:text"`
	TeamID     snowflake.ID   `gorm:"not null;index"`
	PlanName   string         `gorm:"type:text;not null"`
	PaidUntil  time.Time      `gorm:"not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "billing_events" }
