package commerce

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
)

// Envelope is the webhook delivery wrapper around a charge object.
type Envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a webhook delivery body.
func ParseEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, billingdomain.ErrInvalidPayload
	}
	if len(env.Data) == 0 {
		return Envelope{}, billingdomain.ErrInvalidPayload
	}
	return env, nil
}

type rawCharge struct {
	ID       string             `json:"id"`
	Code     string             `json:"code"`
	Status   string             `json:"status"`
	Timeline []rawTimelineEntry `json:"timeline"`
	Pricing  rawPricing         `json:"pricing"`
	Metadata map[string]any     `json:"metadata"`
}

type rawTimelineEntry struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type rawPricing struct {
	Local rawMoney `json:"local"`
}

type rawMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// NormalizeCharge extracts canonical charge facts from a charge object,
// whether it arrived in a webhook delivery or a REST fetch. Pure: same
// input always yields the same facts.
//
// Status rule: the last entry of an ordered timeline wins; a flat status
// field is the fallback; neither present means OTHER. Currency comes from
// pricing.local; absence reads as a non-matching currency. Metadata plan
// and team ids are coerced from string or number forms, and junk values
// read as absent.
func NormalizeCharge(raw json.RawMessage) (billingdomain.ChargeFacts, error) {
	var charge rawCharge
	if err := json.Unmarshal(raw, &charge); err != nil {
		return billingdomain.ChargeFacts{}, billingdomain.ErrInvalidPayload
	}

	facts := billingdomain.ChargeFacts{
		ChargeID: chargeIdentifier(charge),
		Status:   normalizeStatus(charge),
		Currency: strings.ToUpper(strings.TrimSpace(charge.Pricing.Local.Currency)),
	}

	if key := metadataInt(charge.Metadata, "planKey"); key > 0 {
		facts.PlanKey = billingdomain.PlanKey(key)
	}
	if teamID := metadataInt(charge.Metadata, "teamId"); teamID > 0 {
		facts.TeamID = snowflake.ID(teamID)
	}

	return facts, nil
}

func chargeIdentifier(charge rawCharge) string {
	if id := strings.TrimSpace(charge.ID); id != "" {
		return id
	}
	return strings.TrimSpace(charge.Code)
}

func normalizeStatus(charge rawCharge) billingdomain.ChargeStatus {
	status := strings.TrimSpace(charge.Status)
	if len(charge.Timeline) > 0 {
		status = strings.TrimSpace(charge.Timeline[len(charge.Timeline)-1].Status)
	}
	if strings.EqualFold(status, string(billingdomain.StatusConfirmed)) {
		return billingdomain.StatusConfirmed
	}
	return billingdomain.StatusOther
}

func metadataInt(metadata map[string]any, key string) int64 {
	if metadata == nil {
		return 0
	}
	value, ok := metadata[key]
	if !ok {
		return 0
	}
	switch cast := value.(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(cast), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	case float64:
		if cast != float64(int64(cast)) {
			return 0
		}
		return int64(cast)
	case json.Number:
		parsed, err := cast.Int64()
		if err != nil {
			return 0
		}
		return parsed
	case int64:
		return cast
	case int:
		return int64(cast)
	}
	return 0
}
