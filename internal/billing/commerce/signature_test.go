package commerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
)

func signBody(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"charge:confirmed","data":{"status":"CONFIRMED"}}`)

	if err := VerifySignature(payload, signBody(secret, payload), secret); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	if err := VerifySignature(payload, signBody("wrong", payload), secret); !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	if err := VerifySignature(payload, "", secret); !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error for missing header, got %v", err)
	}
}

func TestVerifySignatureBodyMutation(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","data":{"metadata":{"teamId":42}}}`)
	header := signBody(secret, payload)

	// Any byte mutation after signing must fail verification.
	mutated := append([]byte(nil), payload...)
	mutated[len(mutated)-2] = '1'

	if err := VerifySignature(mutated, header, secret); !errors.Is(err, billingdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature after mutation, got %v", err)
	}
}

func TestVerifySignatureMissingSecret(t *testing.T) {
	payload := []byte(`{}`)

	err := VerifySignature(payload, signBody("anything", payload), "")
	if !errors.Is(err, billingdomain.ErrSecretNotConfigured) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
