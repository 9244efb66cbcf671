// Package commerce adapts the payment processor's webhook and REST charge
// representations into canonical charge facts.
package commerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw delivery body.
const SignatureHeader = "X-CC-Webhook-Signature"

// VerifySignature checks the processor signature over the raw, unparsed
// body. Re-serializing the JSON can change byte layout and invalidate the
// signature, so callers must pass the bytes exactly as received, and must
// not parse the body before this check passes.
func VerifySignature(payload []byte, header, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return billingdomain.ErrSecretNotConfigured
	}

	header = strings.TrimSpace(header)
	if header == "" {
		return billingdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(header)), []byte(expected)) {
		return billingdomain.ErrInvalidSignature
	}
	return nil
}
