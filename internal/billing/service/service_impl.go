// Package service implements the subscription reconciliation engine: the
// one place where external, adversarial, duplicated and out-of-order
// payment assertions become a single consistent plan record per team.
package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/workfolio/workfolio/internal/billing/chain"
	"github.com/workfolio/workfolio/internal/billing/commerce"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/clock"
	"github.com/workfolio/workfolio/internal/config"
	"github.com/workfolio/workfolio/internal/metrics"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// subscriptionWindow is the fixed entitlement horizon granted per confirmed
// charge, measured from the moment of processing. It is never extended from
// a prior expiry, so duplicate deliveries cannot drift the horizon.
const subscriptionWindow = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	GenID      *snowflake.Node
	Teams      teamdomain.Repository
	Events     billingdomain.Repository
	Commerce   billingdomain.ChargeFetcher
	Chain      chain.Client
	ObsMetrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.Config
	clock      clock.Clock
	genID      *snowflake.Node
	teams      teamdomain.Repository
	events     billingdomain.Repository
	commerce   billingdomain.ChargeFetcher
	chain      chain.Client
	obsMetrics *metrics.Metrics
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billing.service"),
		cfg:        p.Cfg,
		clock:      p.Clock,
		genID:      p.GenID,
		teams:      p.Teams,
		events:     p.Events,
		commerce:   p.Commerce,
		chain:      p.Chain,
		obsMetrics: p.ObsMetrics,
	}
}

// resolvePlan maps a validated plan key to its tier name and the new expiry
// horizon. Every entry point resolves through here so the key mapping can
// never diverge between sources.
func (s *Service) resolvePlan(key billingdomain.PlanKey) (teamdomain.PlanName, time.Time, error) {
	name, ok := key.PlanName()
	if !ok {
		return "", time.Time{}, billingdomain.ErrInvalidPlanKey
	}
	return name, s.clock.Now().Add(subscriptionWindow), nil
}

// HandleWebhook processes one webhook delivery from the payment processor.
//
// The body must be verified against the shared secret before it is parsed;
// an unverified body is never treated as trusted input. Events the engine
// intentionally ignores (unconfirmed, wrong currency, no team id) return
// nil so the processor stops redelivering them. A failed store write is
// also acknowledged: the processor should not redeliver because the local
// store hiccuped.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	deliveryID := ulid.Make().String()
	log := s.log.With(zap.String("delivery_id", deliveryID))

	if err := commerce.VerifySignature(payload, signature, s.cfg.CommerceWebhookSecret); err != nil {
		log.Warn("webhook rejected", zap.Error(err))
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeRejected)
		return err
	}

	env, err := commerce.ParseEnvelope(payload)
	if err != nil {
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeRejected)
		return err
	}

	facts, err := commerce.NormalizeCharge(env.Data)
	if err != nil {
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeRejected)
		return err
	}

	if !facts.Eligible() {
		log.Info("webhook event ignored",
			zap.String("charge_id", facts.ChargeID),
			zap.String("status", string(facts.Status)),
			zap.String("currency", facts.Currency),
		)
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeIgnored)
		return nil
	}

	if facts.TeamID == 0 {
		log.Info("webhook event dropped, no team id", zap.String("charge_id", facts.ChargeID))
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeNoTeam)
		return nil
	}

	plan, paidUntil, err := s.resolvePlan(facts.PlanKey)
	if err != nil {
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeIgnored)
		return nil
	}

	err = s.teams.UpdatePlan(ctx, s.db, facts.TeamID, plan, paidUntil)
	s.obsMetrics.RecordStoreWrite(billingdomain.SourceWebhook, err)
	if err != nil {
		log.Error("subscription write failed",
			zap.Int64("team_id", int64(facts.TeamID)),
			zap.String("plan", string(plan)),
			zap.Error(err),
		)
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeStoreError)
		return nil
	}

	s.recordEvent(ctx, deliveryID, billingdomain.SourceWebhook, facts.ChargeID, facts.TeamID, plan, paidUntil, payload)
	s.obsMetrics.RecordChargeEvent(billingdomain.SourceWebhook, metrics.OutcomeApplied)
	log.Info("subscription applied",
		zap.Int64("team_id", int64(facts.TeamID)),
		zap.String("plan", string(plan)),
		zap.Time("paid_until", paidUntil),
	)
	return nil
}

// SyncCharge reconciles the authenticated caller's team against the
// processor. Unlike the webhook path this is a foreground call: every
// failure surfaces to the user so the UI can prompt a retry.
func (s *Service) SyncCharge(ctx context.Context, team teamdomain.Team, req billingdomain.SyncChargeRequest) error {
	if !req.PlanKey.Valid() {
		return billingdomain.ErrInvalidPlanKey
	}

	switch req.Method {
	case billingdomain.MethodEth:
		// The on-chain completion handler already wrote state before the
		// client could reach this call; acknowledging keeps the client's
		// post-payment flow uniform across methods.
		return nil

	case billingdomain.MethodCommerce:
		return s.syncCommerceCharge(ctx, team, req)

	default:
		return billingdomain.ErrInvalidMethod
	}
}

func (s *Service) syncCommerceCharge(ctx context.Context, team teamdomain.Team, req billingdomain.SyncChargeRequest) error {
	if req.ChargeID == "" {
		return billingdomain.ErrMissingChargeID
	}

	raw, err := s.commerce.FetchCharge(ctx, req.ChargeID)
	if err != nil {
		return err
	}

	facts, err := commerce.NormalizeCharge(raw)
	if err != nil {
		return err
	}
	if !facts.Confirmed() {
		s.log.Info("sync charge not eligible",
			zap.Int64("team_id", int64(team.ID)),
			zap.String("charge_id", req.ChargeID),
			zap.String("status", string(facts.Status)),
			zap.String("currency", facts.Currency),
		)
		return billingdomain.ErrChargeNotEligible
	}

	// The charge metadata is not trusted for team resolution here; the
	// write targets the caller's own team only.
	plan, paidUntil, err := s.resolvePlan(req.PlanKey)
	if err != nil {
		return err
	}

	err = s.teams.UpdatePlan(ctx, s.db, team.ID, plan, paidUntil)
	s.obsMetrics.RecordStoreWrite(billingdomain.SourceClientSync, err)
	if err != nil {
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceClientSync, metrics.OutcomeStoreError)
		return err
	}

	s.recordEvent(ctx, ulid.Make().String(), billingdomain.SourceClientSync, req.ChargeID, team.ID, plan, paidUntil, raw)
	s.obsMetrics.RecordChargeEvent(billingdomain.SourceClientSync, metrics.OutcomeApplied)
	return nil
}

// PayOnChain settles the subscription on-chain. The applied expiry is the
// timestamp the chain call returned, never a locally recomputed window:
// this is the one path where the horizon is externally dictated.
func (s *Service) PayOnChain(ctx context.Context, team teamdomain.Team, planKey billingdomain.PlanKey) (billingdomain.OnChainResult, error) {
	plan, _, err := s.resolvePlan(planKey)
	if err != nil {
		return billingdomain.OnChainResult{}, err
	}

	receipt, err := s.chain.PaySubscription(ctx, team.ID, planKey)
	if err != nil {
		return billingdomain.OnChainResult{}, err
	}

	err = s.teams.UpdatePlan(ctx, s.db, team.ID, plan, receipt.PaidUntil)
	s.obsMetrics.RecordStoreWrite(billingdomain.SourceOnChain, err)
	if err != nil {
		s.obsMetrics.RecordChargeEvent(billingdomain.SourceOnChain, metrics.OutcomeStoreError)
		return billingdomain.OnChainResult{}, err
	}

	s.recordEvent(ctx, ulid.Make().String(), billingdomain.SourceOnChain, receipt.TxHash, team.ID, plan, receipt.PaidUntil, nil)
	s.obsMetrics.RecordChargeEvent(billingdomain.SourceOnChain, metrics.OutcomeApplied)
	s.log.Info("on-chain subscription applied",
		zap.Int64("team_id", int64(team.ID)),
		zap.String("plan", string(plan)),
		zap.String("tx_hash", receipt.TxHash),
		zap.Time("paid_until", receipt.PaidUntil),
	)

	return billingdomain.OnChainResult{
		TeamID:    team.ID,
		TxHash:    receipt.TxHash,
		PaidUntil: receipt.PaidUntil,
	}, nil
}

// recordEvent appends to the audit trail. Best effort: reconciliation has
// already happened, so a failed audit insert is only logged.
func (s *Service) recordEvent(ctx context.Context, deliveryID, source, chargeID string, teamID snowflake.ID, plan teamdomain.PlanName, paidUntil time.Time, payload []byte) {
	record := billingdomain.EventRecord{
		ID:         s.genID.Generate(),
		DeliveryID: deliveryID,
		Source:     source,
		ChargeID:   chargeID,
		TeamID:     teamID,
		PlanName:   string(plan),
		PaidUntil:  paidUntil,
		CreatedAt:  s.clock.Now(),
	}
	if len(payload) > 0 {
		record.Payload = datatypes.JSON(payload)
	}

	if err := s.events.InsertEvent(ctx, s.db, &record); err != nil {
		s.log.Warn("billing event audit insert failed",
			zap.String("source", source),
			zap.Int64("team_id", int64(teamID)),
			zap.Error(err),
		)
	}
}
