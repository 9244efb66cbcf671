package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/config"
	"go.uber.org/zap"
)

type signerClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

// NewSignerClient builds the HTTP client for the external signer service.
// When no signer is configured, every payment attempt fails fast with a
// configuration error.
func NewSignerClient(cfg config.Config, log *zap.Logger) Client {
	return &signerClient{
		baseURL: strings.TrimRight(cfg.SignerURL, "/"),
		apiKey:  cfg.SignerAPIKey,
		timeout: cfg.ChainTimeout,
		// Block confirmation can take tens of seconds; the per-call
		// context carries the deadline, not the transport.
		http: &http.Client{},
		log:  log.Named("chain.signer"),
	}
}

type payRequest struct {
	TeamID  int64 `json:"teamId"`
	PlanKey int   `json:"planKey"`
}

type payResponse struct {
	TxHash    string    `json:"txHash"`
	PaidUntil time.Time `json:"paidUntil"`
	Error     string    `json:"error"`
}

func (c *signerClient) PaySubscription(ctx context.Context, teamID snowflake.ID, planKey billingdomain.PlanKey) (Receipt, error) {
	if c.baseURL == "" {
		return Receipt{}, billingdomain.ErrSignerNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(payRequest{TeamID: int64(teamID), PlanKey: int(planKey)})
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/subscriptions/pay", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// A timed-out transaction is unresolved, not failed: it may still
		// confirm on-chain after the deadline.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			c.log.Warn("chain payment unresolved",
				zap.Int64("team_id", int64(teamID)),
				zap.Error(err),
			)
			return Receipt{}, billingdomain.ErrPaymentUnresolved
		}
		return Receipt{}, fmt.Errorf("%w: %v", billingdomain.ErrPaymentRejected, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", billingdomain.ErrPaymentRejected, err)
	}

	var payload payResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Receipt{}, fmt.Errorf("%w: malformed signer response", billingdomain.ErrPaymentRejected)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := strings.TrimSpace(payload.Error)
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		c.log.Warn("chain payment rejected",
			zap.Int64("team_id", int64(teamID)),
			zap.String("reason", reason),
		)
		return Receipt{}, fmt.Errorf("%w: %s", billingdomain.ErrPaymentRejected, reason)
	}

	if payload.TxHash == "" || payload.PaidUntil.IsZero() {
		return Receipt{}, fmt.Errorf("%w: incomplete signer response", billingdomain.ErrPaymentRejected)
	}

	return Receipt{TxHash: payload.TxHash, PaidUntil: payload.PaidUntil.UTC()}, nil
}
