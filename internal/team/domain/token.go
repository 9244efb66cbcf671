package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashAPIToken hashes a raw API token using the same strategy as token
// issuance. Only the hash is ever persisted; the raw token is shown once.
func HashAPIToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
