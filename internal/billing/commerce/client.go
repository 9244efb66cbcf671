package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/config"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-CC-Api-Key"

// Client calls the processor REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.CommerceBaseURL, "/"),
		apiKey:  cfg.CommerceAPIKey,
		http:    &http.Client{Timeout: cfg.CommerceTimeout},
		log:     log.Named("commerce.client"),
	}
}

// FetchCharge retrieves one charge by id and returns the raw charge object
// for normalization. Any transport or non-2xx failure maps to an upstream
// error; the engine never retries on its own.
func (c *Client) FetchCharge(ctx context.Context, chargeID string) (json.RawMessage, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, billingdomain.ErrMissingChargeID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/charges/"+chargeID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("charge fetch failed", zap.String("charge_id", chargeID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", billingdomain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billingdomain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("charge fetch rejected",
			zap.String("charge_id", chargeID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", billingdomain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.Data) == 0 {
		return nil, billingdomain.ErrInvalidPayload
	}
	return wrapper.Data, nil
}
