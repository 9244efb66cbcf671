// Package chain integrates the on-chain subscription contract through an
// external signer service. Wallet cryptography never runs in-process.
package chain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
)

// Receipt reports a mined subscription payment. PaidUntil is dictated by
// the contract, not computed locally.
type Receipt struct {
	TxHash    string
	PaidUntil time.Time
}

// Client pays a subscription on-chain, blocking until the transaction is
// confirmed or the context expires.
type Client interface {
	PaySubscription(ctx context.Context, teamID snowflake.ID, planKey billingdomain.PlanKey) (Receipt, error)
}
