package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SetupToken is the secret in a member's account setup link. Value goes into
// the email; only Hash is stored on the user row.
type SetupToken struct {
	Value     string
	Hash      string
	ExpiresAt time.Time
}

// NewSetupToken creates a setup token valid for ttl after now.
func NewSetupToken(now time.Time, ttl time.Duration) (SetupToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return SetupToken{}, fmt.Errorf("failed to generate setup token: %w", err)
	}
	value := hex.EncodeToString(raw)
	return SetupToken{Value: value, Hash: HashToken(value), ExpiresAt: now.Add(ttl)}, nil
}

// HashToken is the lookup key stored for a setup token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewCSRFKey returns a random 32-byte gorilla/csrf key.
func NewCSRFKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}
	return key, nil
}
